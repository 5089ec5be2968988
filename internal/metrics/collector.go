package metrics

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const gib = 1 << 30

// Snapshot holds one sample of system and process metrics
type Snapshot struct {
	CPUPercent        float64 // system-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // this process, can exceed 100% on multi-core
	MemoryUsedGB      float64
	MemoryPercent     float64
	ProcessRSSGB      float64
	HeapAllocGB       float64 // Go heap only; GEOS allocates outside it
	Goroutines        int
	Timestamp         time.Time
}

// Collector periodically samples and logs resource usage while a run is in
// progress. Overlay work is CPU and memory bound, so disk counters are not
// sampled.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process
	mu       sync.RWMutex
	last     *Snapshot
}

// NewCollector creates a new metrics collector
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start samples until ctx is cancelled
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// The first sample primes the CPU percentage baselines
	c.Sample()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.log(c.Sample())
		}
	}
}

// Last returns the most recent snapshot, or nil before the first sample
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Sample takes a snapshot and records it as the latest
func (c *Collector) Sample() *Snapshot {
	s := &Snapshot{Timestamp: time.Now(), Goroutines: runtime.NumGoroutine()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSSGB = float64(info.RSS) / gib
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
		s.MemoryUsedGB = float64(vmem.Used) / gib
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAllocGB = float64(ms.HeapAlloc) / gib

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
	return s
}

func (c *Collector) log(s *Snapshot) {
	c.logger.Info("System metrics",
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("mem_used", formatGB(s.MemoryUsedGB)),
		zap.String("rss", formatGB(s.ProcessRSSGB)),
		zap.String("heap", formatGB(s.HeapAllocGB)),
		zap.Int("goroutines", s.Goroutines),
	)
}

// formatGB formats gigabytes with one decimal place
func formatGB(gb float64) string {
	return strconv.FormatFloat(gb, 'f', 1, 64) + " GB"
}
