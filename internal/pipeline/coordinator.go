package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/parkarea-go/internal/config"
	"github.com/wegman-software/parkarea-go/internal/logger"
	"github.com/wegman-software/parkarea-go/internal/metrics"
	"github.com/wegman-software/parkarea-go/internal/overlay"
	"github.com/wegman-software/parkarea-go/internal/stats"
	"github.com/wegman-software/parkarea-go/internal/store"
	"github.com/wegman-software/parkarea-go/internal/textenc"
)

// Coordinator runs the pipeline stages against an input store and an
// artifact store. Each stage persists what later stages read, so stages can
// be run one at a time.
type Coordinator struct {
	cfg       *config.Config
	inputs    store.Store
	artifacts store.Store
}

// NewCoordinator creates a new pipeline coordinator
func NewCoordinator(cfg *config.Config, inputs, artifacts store.Store) *Coordinator {
	return &Coordinator{cfg: cfg, inputs: inputs, artifacts: artifacts}
}

// Run executes all stages in order
func (c *Coordinator) Run(ctx context.Context) (*RunStats, error) {
	log := logger.Get()
	start := time.Now()

	// Start metrics collection in background if interval is set
	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(c.cfg.MetricsInterval, log)
		go collector.Start(metricsCtx)
		log.Info("System metrics collection started",
			zap.Duration("interval", c.cfg.MetricsInterval))
	}

	run := &RunStats{}

	clip, err := c.Clip(ctx)
	if err != nil {
		return nil, err
	}
	run.Clip = *clip

	cons, err := c.Constraints(ctx)
	if err != nil {
		return nil, err
	}
	run.Constraints = *cons

	rem, err := c.Remaining(ctx)
	if err != nil {
		return nil, err
	}
	run.Remaining = *rem

	lc, err := c.Landcover(ctx)
	if err != nil {
		return nil, err
	}
	run.Landcover = *lc

	log.Info("Run complete",
		zap.Int("sources_excluded", run.Clip.Excluded),
		zap.Float64("remaining_ha", run.Remaining.RemainingHectares),
		zap.Int("regions_unavailable", run.Landcover.Unavailable),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return run, nil
}

// loadBoundary loads, cleans and dissolves the boundary. Any failure here is
// fatal for the run.
func (c *Coordinator) loadBoundary(ctx context.Context) (*overlay.Layer, *overlay.Coverage, error) {
	log := logger.Get()

	layer, err := c.inputs.Load(ctx, c.cfg.Boundary)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %w", ErrBoundaryMissing, err)
		}
		return nil, nil, fmt.Errorf("load boundary: %w", err)
	}

	cleaned, cover, report, err := boundaryCoverage(layer)
	logRepair(log, "boundary", 0, report)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Boundary loaded",
		zap.Int("features", cleaned.Len()),
		zap.Int("parts", cover.Parts()),
		zap.Float64("hectares", Hectares(cover.Area())))
	return cleaned, cover, nil
}

// sources returns the layers the clip stage processes: every configured
// constraint plus the priority habitats.
func (c *Coordinator) sources() []config.Source {
	srcs := append([]config.Source(nil), c.cfg.Constraints...)
	if c.cfg.PriorityHabitats != "" {
		srcs = append(srcs, config.Source{Name: HabitatsSource, Layer: c.cfg.PriorityHabitats})
	}
	return srcs
}

// Clip clips every source to the boundary in parallel. A source that is
// missing, undecodable or fails in the overlay is logged and excluded; it
// never stops its siblings.
func (c *Coordinator) Clip(ctx context.Context) (*ClipStats, error) {
	log := logger.Stage("clip")
	start := time.Now()

	_, boundary, err := c.loadBoundary(ctx)
	if err != nil {
		return nil, err
	}

	sources := c.sources()
	results := make([]SourceResult, len(sources))
	progress := NewProgressTracker(len(sources), "Clip", log)

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Workers)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = c.clipOne(ctx, log, src, boundary)
			progress.Done(src.Name)
			return nil
		})
	}
	g.Wait()

	st := &ClipStats{Sources: results}
	for _, r := range results {
		if r.Err != nil {
			st.Excluded++
		}
	}
	st.Duration = time.Since(start)

	log.Info("Clip complete",
		zap.Int("sources", len(sources)),
		zap.Int("excluded", st.Excluded),
		zap.Duration("duration", st.Duration.Round(time.Millisecond)))
	return st, nil
}

func (c *Coordinator) clipOne(ctx context.Context, log *zap.Logger, src config.Source, boundary *overlay.Coverage) SourceResult {
	log = log.With(zap.String("source", src.Name))

	layer, err := c.inputs.Load(ctx, src.Layer)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Warn("Source layer missing, excluded", zap.String("layer", src.Layer))
		case errors.Is(err, textenc.ErrDecode):
			log.Warn("Source attributes could not be decoded, excluded", zap.Error(err))
		default:
			log.Error("Failed to load source, excluded", zap.Error(err))
		}
		return SourceResult{Name: src.Name, Err: err}
	}
	layer.Name = src.Name

	clipped, res, err := clipSource(layer, boundary)
	if err != nil {
		log.Error("Failed to clip source, excluded", zap.Error(err))
		res.Err = err
		return res
	}

	clipped.Name = ClippedName(src.Name)
	if err := c.artifacts.Save(ctx, clipped.Name, clipped); err != nil {
		log.Error("Failed to save clipped layer", zap.Error(err))
		res.Err = err
		return res
	}

	log.Debug("Source clipped",
		zap.Int("loaded", res.Loaded),
		zap.Int("non_polygonal", res.Discarded),
		zap.Int("unrepairable", res.Dropped),
		zap.Int("degenerate", res.Degenerate),
		zap.Int("kept", res.Kept),
		zap.Float64("hectares", res.Hectares))
	return res
}

// loadArtifact loads a clipped artifact and cleans it. Missing or unreadable
// artifacts are logged and returned as nil.
func (c *Coordinator) loadArtifact(ctx context.Context, log *zap.Logger, name string) *overlay.Layer {
	layer, err := c.artifacts.Load(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Artifact missing, skipped", zap.String("artifact", name))
		} else {
			log.Error("Failed to load artifact, skipped", zap.String("artifact", name), zap.Error(err))
		}
		return nil
	}
	cleaned, discarded, report := clean(layer)
	logRepair(log, name, discarded, report)
	return cleaned
}

// Constraints merges the clipped constraint layers into one coverage and
// removes the priority habitats from it.
func (c *Coordinator) Constraints(ctx context.Context) (*ConstraintStats, error) {
	log := logger.Stage("constraints")
	start := time.Now()

	var layers []*overlay.Layer
	for _, src := range c.cfg.Constraints {
		if l := c.loadArtifact(ctx, log, ClippedName(src.Name)); l != nil {
			layers = append(layers, l)
		}
	}
	habitats := c.loadArtifact(ctx, log, ClippedName(HabitatsSource))

	merged, matrix, rejected, err := constraintsMatrix(layers, habitats)
	if err != nil {
		return nil, fmt.Errorf("merge constraints: %w", err)
	}
	logRejected(log, rejected)

	if err := c.saveCoverage(ctx, log, MergedConstraints, merged); err != nil {
		return nil, fmt.Errorf("save merged constraints: %w", err)
	}
	if err := c.saveCoverage(ctx, log, ConstraintsMatrix, matrix); err != nil {
		return nil, fmt.Errorf("save constraints matrix: %w", err)
	}

	st := &ConstraintStats{
		Sources:        len(layers),
		Rejected:       rejected,
		MergedHectares: Hectares(merged.Area()),
		MatrixHectares: Hectares(matrix.Area()),
		Duration:       time.Since(start),
	}
	log.Info("Constraints merged",
		zap.Int("sources", st.Sources),
		zap.Int("rejected", len(st.Rejected)),
		zap.Float64("merged_ha", st.MergedHectares),
		zap.Float64("without_habitats_ha", st.MatrixHectares),
		zap.Duration("duration", st.Duration.Round(time.Millisecond)))
	return st, nil
}

// Remaining subtracts the exclusions from the boundary using the configured
// variant and saves the remaining area.
func (c *Coordinator) Remaining(ctx context.Context) (*RemainingStats, error) {
	log := logger.Stage("remaining").With(zap.String("variant", c.cfg.Variant))
	start := time.Now()

	boundary, cover, err := c.loadBoundary(ctx)
	if err != nil {
		return nil, err
	}

	st := &RemainingStats{Variant: c.cfg.Variant, BoundaryHectares: Hectares(cover.Area())}

	var res *remainingResult
	switch c.cfg.Variant {
	case config.VariantDirect:
		exclusions := []*overlay.Layer{c.loadArtifact(ctx, log, ClippedName(HabitatsSource))}
		for _, src := range c.cfg.Constraints {
			exclusions = append(exclusions, c.loadArtifact(ctx, log, ClippedName(src.Name)))
		}
		res, err = remainingDirect(boundary, exclusions)

	case config.VariantCached:
		var combined *overlay.Layer
		combined, st.CacheHit, err = c.combinedConstraints(ctx, log)
		if err != nil {
			return nil, err
		}
		res, err = remainingCached(boundary, cover, combined)

	default:
		return nil, fmt.Errorf("unknown variant %q", c.cfg.Variant)
	}
	if err != nil {
		return nil, fmt.Errorf("remaining area: %w", err)
	}
	logRejected(log, res.rejected)

	remaining := res.remaining
	remaining.Name = RemainingArea
	if err := c.artifacts.Save(ctx, RemainingArea, remaining); err != nil {
		return nil, fmt.Errorf("save remaining area: %w", err)
	}

	st.ConstraintHectares = Hectares(res.excluded.Area())
	st.RemainingHectares = Hectares(remaining.Area())
	st.Rejected = res.rejected
	st.Degenerate = res.degenerate
	st.Duration = time.Since(start)

	if remaining.Len() == 0 {
		log.Warn("Boundary is fully covered by constraints")
	}
	log.Info("Remaining area calculated",
		zap.Bool("cache_hit", st.CacheHit),
		zap.Float64("boundary_ha", st.BoundaryHectares),
		zap.Float64("constraints_ha", st.ConstraintHectares),
		zap.Float64("remaining_ha", st.RemainingHectares),
		zap.Int("degenerate", st.Degenerate),
		zap.Duration("duration", st.Duration.Round(time.Millisecond)))
	return st, nil
}

func logRejected(log *zap.Logger, layers []string) {
	for _, name := range layers {
		log.Warn("Overlay rejected layer, excluded from merge", zap.String("layer", name))
	}
}

// saveCoverage persists a coverage as a layer. An empty coverage is stored
// with no features, which loses its reason, so the reason is logged here.
func (c *Coordinator) saveCoverage(ctx context.Context, log *zap.Logger, name string, cov *overlay.Coverage) error {
	if cov.IsEmpty() {
		log.Warn("Saving empty coverage",
			zap.String("artifact", name),
			zap.String("reason", cov.EmptyReason))
	}
	return c.artifacts.Save(ctx, name, cov.Layer())
}

// DropCache deletes the combined-constraints artifact so that the cached
// variant rebuilds it on its next run.
func (c *Coordinator) DropCache(ctx context.Context) error {
	return c.artifacts.Delete(ctx, CombinedConstraints)
}

// combinedConstraints loads the combined-constraints artifact or builds and
// saves it when it does not exist yet.
func (c *Coordinator) combinedConstraints(ctx context.Context, log *zap.Logger) (*overlay.Layer, bool, error) {
	exists, err := c.artifacts.Exists(ctx, CombinedConstraints)
	if err != nil {
		return nil, false, fmt.Errorf("check combined constraints: %w", err)
	}
	if exists {
		layer, err := c.artifacts.Load(ctx, CombinedConstraints)
		if err != nil {
			return nil, false, fmt.Errorf("load combined constraints: %w", err)
		}
		cleaned, discarded, report := clean(layer)
		logRepair(log, CombinedConstraints, discarded, report)
		log.Info("Loaded pre-saved combined constraints", zap.Int("features", cleaned.Len()))
		return cleaned, true, nil
	}

	combined, err := combineConstraints(
		c.loadArtifact(ctx, log, ClippedName(HabitatsSource)),
		c.loadArtifact(ctx, log, ConstraintsMatrix),
	)
	if err != nil {
		return nil, false, fmt.Errorf("combine constraints: %w", err)
	}

	if err := c.saveCoverage(ctx, log, CombinedConstraints, combined); err != nil {
		return nil, false, fmt.Errorf("save combined constraints: %w", err)
	}
	log.Info("Combined constraints saved", zap.Float64("hectares", Hectares(combined.Area())))
	return combined.Layer(), false, nil
}

// Landcover clips each region's land cover to the remaining area, sums area
// per category and writes the result matrix.
func (c *Coordinator) Landcover(ctx context.Context) (*LandcoverStats, error) {
	log := logger.Stage("landcover")
	start := time.Now()

	remaining, err := c.artifacts.Load(ctx, RemainingArea)
	if err != nil {
		return nil, fmt.Errorf("load remaining area: %w", err)
	}
	cover, err := overlay.Dissolve(RemainingArea, remaining)
	if err != nil {
		return nil, fmt.Errorf("dissolve remaining area: %w", err)
	}

	matrix := stats.NewMatrix(c.cfg.RegionNames(), stats.Layout{
		IndexLabel:   c.cfg.IndexLabel,
		ColumnPrefix: c.cfg.CategoryPrefix(),
		Codes:        c.cfg.CategoryCodes,
	})

	var unavailable, skipped atomic.Int64
	progress := NewProgressTracker(len(c.cfg.Regions), "Landcover", log)

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Workers)
	for _, region := range c.cfg.Regions {
		g.Go(func() error {
			n, ok := c.landcoverRegion(ctx, log, region, cover, matrix)
			skipped.Add(int64(n))
			if !ok {
				unavailable.Add(1)
			}
			progress.Done(region.Key)
			return nil
		})
	}
	g.Wait()

	path := filepath.Join(c.cfg.OutputDir, c.cfg.MatrixFile)
	if err := WriteMatrix(path, matrix); err != nil {
		return nil, err
	}

	st := &LandcoverStats{
		Regions:     len(c.cfg.Regions),
		Unavailable: int(unavailable.Load()),
		Skipped:     int(skipped.Load()),
		MatrixPath:  path,
		Duration:    time.Since(start),
	}
	log.Info("Land-cover statistics written",
		zap.String("path", path),
		zap.Int("regions", st.Regions),
		zap.Int("unavailable", st.Unavailable),
		zap.Int("uncategorised", st.Skipped),
		zap.Duration("duration", st.Duration.Round(time.Millisecond)))
	return st, nil
}

// landcoverRegion fills one matrix row. It reports the number of features
// without a category code and whether the row holds measurements.
func (c *Coordinator) landcoverRegion(ctx context.Context, log *zap.Logger, region config.Region, remaining *overlay.Coverage, matrix *stats.Matrix) (int, bool) {
	log = log.With(zap.String("region", region.Key))

	unavailable := func(msg string, fields ...zap.Field) (int, bool) {
		log.Warn(msg, fields...)
		markUnavailable(log, matrix, region.Name)
		return 0, false
	}

	if region.NoData || region.LandCover == "" {
		log.Info("No land-cover data for region")
		markUnavailable(log, matrix, region.Name)
		return 0, false
	}

	layer, err := c.inputs.Load(ctx, region.LandCover)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return unavailable("Land-cover layer missing", zap.String("layer", region.LandCover))
		}
		return unavailable("Failed to load land cover", zap.Error(err))
	}
	layer.Name = region.Key

	cleaned, discarded, report := clean(layer)
	logRepair(log, region.Key, discarded, report)

	clipped, _, err := overlay.Clip(cleaned, remaining)
	if err != nil {
		if errors.Is(err, overlay.ErrEmptyResult) {
			return unavailable("Remaining area is empty")
		}
		return unavailable("Failed to clip land cover", zap.Error(err))
	}

	if err := c.artifacts.Save(ctx, LandcoverName(region.Key), clipped); err != nil {
		log.Error("Failed to save clipped land cover", zap.Error(err))
	}

	row, skipped := stats.AreaByCategory(clipped, c.cfg.CategoryAttribute)
	if err := matrix.SetRow(region.Name, row); err != nil {
		return unavailable("Failed to record row", zap.Error(err))
	}

	total, _ := matrix.Total(region.Name)
	log.Debug("Region aggregated",
		zap.Int("features", clipped.Len()),
		zap.Int("categories", len(row)),
		zap.Int("uncategorised", skipped),
		zap.Float64("hectares", total))
	return skipped, true
}

func markUnavailable(log *zap.Logger, matrix *stats.Matrix, region string) {
	if err := matrix.MarkUnavailable(region); err != nil {
		log.Error("Failed to mark region unavailable", zap.Error(err))
	}
}

// WriteMatrix writes the matrix as CSV through a temporary file
func WriteMatrix(path string, m *stats.Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create matrix file: %w", err)
	}
	tmp := f.Name()

	if err := m.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write matrix: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move matrix into place: %w", err)
	}
	return nil
}
