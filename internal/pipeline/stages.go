package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wegman-software/parkarea-go/internal/overlay"
)

// ErrBoundaryMissing is the one fatal condition of a run: without a boundary
// there is nothing to clip to or subtract from.
var ErrBoundaryMissing = errors.New("boundary layer missing or empty")

// clean restricts a layer to polygons, heals it, and filters again since a
// repair can turn a polygon into a collection.
func clean(layer *overlay.Layer) (*overlay.Layer, int, overlay.RepairReport) {
	filtered, discarded := overlay.FilterPolygons(layer)
	repaired, report := overlay.Repair(filtered)
	out, more := overlay.FilterPolygons(repaired)
	return out, discarded + more, report
}

func logRepair(log *zap.Logger, layer string, discarded int, report overlay.RepairReport) {
	for _, f := range report.Dropped {
		log.Debug("Dropped unrepairable feature", zap.Error(f))
	}
	if len(report.Dropped) > 0 {
		log.Warn("Dropped unrepairable features",
			zap.String("layer", layer),
			zap.Int("dropped", len(report.Dropped)),
			zap.Int("input", report.Input))
	}
	if discarded > 0 || report.Healed > 0 {
		log.Debug("Layer cleaned",
			zap.String("layer", layer),
			zap.Int("non_polygonal", discarded),
			zap.Int("healed", report.Healed))
	}
}

// boundaryCoverage cleans the boundary and dissolves it. The cleaned layer is
// the base of the remaining-area difference so park attributes survive.
func boundaryCoverage(layer *overlay.Layer) (*overlay.Layer, *overlay.Coverage, overlay.RepairReport, error) {
	cleaned, _, report := clean(layer)
	cov, err := overlay.Dissolve("boundary", cleaned)
	if err != nil {
		return nil, nil, report, fmt.Errorf("%w: %v", ErrBoundaryMissing, err)
	}
	if cov.IsEmpty() {
		return nil, nil, report, fmt.Errorf("%w: %s", ErrBoundaryMissing, cov.EmptyReason)
	}
	return cleaned, cov, report, nil
}

// clipSource runs one source through type filter, repair and clip
func clipSource(layer *overlay.Layer, boundary *overlay.Coverage) (*overlay.Layer, SourceResult, error) {
	res := SourceResult{Name: layer.Name, Loaded: layer.Len()}

	cleaned, discarded, report := clean(layer)
	res.Discarded = discarded
	res.Dropped = len(report.Dropped)

	clipped, degenerate, err := overlay.Clip(cleaned, boundary)
	if err != nil {
		return nil, res, err
	}
	res.Degenerate = degenerate
	res.Kept = clipped.Len()
	res.Hectares = Hectares(clipped.Area())
	return clipped, res, nil
}

// dissolve is the union used to merge layers. Tests replace it to make the
// overlay reject an operand.
var dissolve = overlay.Dissolve

// mergeLayers dissolves layers into one coverage. When the overlay rejects the
// combined union, each layer is dissolved on its own and the ones that fail
// are left out; their names are returned. If every layer passes alone the
// combined error is returned as there is no single layer to blame.
func mergeLayers(name string, layers []*overlay.Layer) (*overlay.Coverage, []string, error) {
	cov, err := dissolve(name, layers...)
	if err == nil || !errors.Is(err, overlay.ErrOverlay) {
		return cov, nil, err
	}

	var (
		kept     []*overlay.Layer
		rejected []string
	)
	for _, l := range layers {
		if l == nil {
			continue
		}
		if _, lerr := dissolve(l.Name, l); lerr != nil {
			if !errors.Is(lerr, overlay.ErrOverlay) {
				return nil, nil, lerr
			}
			rejected = append(rejected, l.Name)
			continue
		}
		kept = append(kept, l)
	}
	if len(rejected) == 0 {
		return nil, nil, err
	}

	cov, err = dissolve(name, kept...)
	if err != nil {
		return nil, rejected, err
	}
	return cov, rejected, nil
}

// constraintsMatrix merges the clipped constraint layers and subtracts the
// priority habitats from the result. Layers the overlay rejects are left out
// of the merge and returned by name.
func constraintsMatrix(constraints []*overlay.Layer, habitats *overlay.Layer) (merged, matrix *overlay.Coverage, rejected []string, err error) {
	merged, rejected, err = mergeLayers(MergedConstraints, constraints)
	if err != nil {
		return nil, nil, rejected, err
	}
	if merged.IsEmpty() {
		return merged, &overlay.Coverage{Name: ConstraintsMatrix, SRID: merged.SRID, EmptyReason: merged.EmptyReason}, rejected, nil
	}

	habitatCover, more, err := mergeLayers(HabitatsSource, []*overlay.Layer{habitats})
	rejected = append(rejected, more...)
	if err != nil {
		return nil, nil, rejected, err
	}
	matrix, err = overlay.DifferenceCoverage(ConstraintsMatrix, merged, habitatCover)
	if err != nil {
		return nil, nil, rejected, err
	}
	return merged, matrix, rejected, nil
}

// remainingResult is the outcome of either remaining-area variant
type remainingResult struct {
	remaining  *overlay.Layer
	excluded   *overlay.Coverage
	rejected   []string // exclusion layers the overlay could not merge
	degenerate int      // boundary features left without polygonal area
}

// remainingDirect subtracts the union of all exclusion layers from the
// boundary in one step.
func remainingDirect(boundary *overlay.Layer, exclusions []*overlay.Layer) (*remainingResult, error) {
	excluded, rejected, err := mergeLayers("exclusions", exclusions)
	if err != nil {
		return nil, err
	}
	remaining, degenerate, err := overlay.Difference(boundary, excluded)
	if err != nil {
		return nil, err
	}
	return &remainingResult{remaining: remaining, excluded: excluded, rejected: rejected, degenerate: degenerate}, nil
}

// combineConstraints unions priority habitats with the constraints matrix
// into the combined-constraints artifact.
func combineConstraints(layers ...*overlay.Layer) (*overlay.Coverage, error) {
	var cleaned []*overlay.Layer
	for _, l := range layers {
		if l == nil {
			continue
		}
		c, _, _ := clean(l)
		cleaned = append(cleaned, c)
	}
	return overlay.Dissolve(CombinedConstraints, cleaned...)
}

// remainingCached clips the combined constraints to the boundary before
// subtracting them. combined must already be cleaned.
func remainingCached(boundary *overlay.Layer, boundaryCover *overlay.Coverage, combined *overlay.Layer) (*remainingResult, error) {
	clipped, _, err := overlay.Clip(combined, boundaryCover)
	if err != nil {
		return nil, err
	}
	excluded, err := overlay.Dissolve(CombinedConstraints, clipped)
	if err != nil {
		return nil, err
	}
	remaining, degenerate, err := overlay.Difference(boundary, excluded)
	if err != nil {
		return nil, err
	}
	return &remainingResult{remaining: remaining, excluded: excluded, degenerate: degenerate}, nil
}
