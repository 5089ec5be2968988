package pipeline

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/parkarea-go/internal/stats"
)

// ProgressTracker counts completed work items of a parallel stage and logs
// each completion with an ETA.
type ProgressTracker struct {
	total       int64
	done        atomic.Int64
	startTime   time.Time
	description string
	log         *zap.Logger
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int, description string, log *zap.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:       int64(total),
		startTime:   time.Now(),
		description: description,
		log:         log,
	}
}

// Progress holds current progress information
type Progress struct {
	Current     int64
	Total       int64
	Percentage  float64
	Elapsed     time.Duration
	ETA         time.Duration
	Description string
}

// Done records one finished item and logs the progress
func (p *ProgressTracker) Done(item string) Progress {
	prog := p.calculate(p.done.Add(1))
	p.log.Info(p.description+" progress",
		zap.String("item", item),
		zap.String("done", fmt.Sprintf("%d/%d", prog.Current, prog.Total)),
		zap.Duration("elapsed", prog.Elapsed),
		zap.String("eta", FormatETA(prog.ETA)))
	return prog
}

func (p *ProgressTracker) calculate(current int64) Progress {
	elapsed := time.Since(p.startTime)

	var percentage float64
	var eta time.Duration
	if p.total > 0 && current > 0 {
		percentage = float64(current) / float64(p.total) * 100
		if current < p.total {
			perItem := elapsed / time.Duration(current)
			eta = perItem * time.Duration(p.total-current)
		}
	}

	return Progress{
		Current:     current,
		Total:       p.total,
		Percentage:  percentage,
		Elapsed:     elapsed.Round(time.Millisecond),
		ETA:         eta.Round(time.Second),
		Description: p.description,
	}
}

// FormatETA formats the ETA duration in a human-readable format
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// Hectares converts a planar area in square metres to hectares
func Hectares(squareMetres float64) float64 {
	return squareMetres / stats.SquareMetresPerHectare
}
