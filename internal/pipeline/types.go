package pipeline

import (
	"path"
	"time"
)

// Artifact names shared by the stages. Stores map them to files or tables.
const (
	HabitatsSource      = "priority_habitats"
	MergedConstraints   = "constraints_matrix/merged_constraints"
	ConstraintsMatrix   = "constraints_matrix/constraints_matrix_no_habitats"
	CombinedConstraints = "combined_constraints"
	RemainingArea       = "remaining_area"
)

// ClippedName returns the artifact name of a clipped constraint source
func ClippedName(source string) string {
	return path.Join("clipped", source+"_clipped")
}

// LandcoverName returns the artifact name of a region's clipped land cover
func LandcoverName(region string) string {
	return path.Join("landcover_clipped", region+"_clipped")
}

// SourceResult describes one source's pass through the clip chain
type SourceResult struct {
	Name       string
	Loaded     int     // features read from the store
	Discarded  int     // non-polygonal features removed by the type filter
	Dropped    int     // features the repair could not heal
	Degenerate int     // clip results with no polygonal area
	Kept       int     // features in the saved artifact
	Hectares   float64 // area of the saved artifact
	Err        error   // non-nil when the source was excluded
}

// ClipStats holds clip stage statistics
type ClipStats struct {
	Sources  []SourceResult
	Excluded int
	Duration time.Duration
}

// ConstraintStats holds constraints stage statistics
type ConstraintStats struct {
	Sources        int      // clipped constraint layers loaded
	Rejected       []string // layers the overlay could not merge, left out
	MergedHectares float64
	MatrixHectares float64 // merged constraints minus priority habitats
	Duration       time.Duration
}

// RemainingStats holds remaining-area stage statistics
type RemainingStats struct {
	Variant            string
	CacheHit           bool // combined constraints were loaded, not rebuilt
	BoundaryHectares   float64
	ConstraintHectares float64
	RemainingHectares  float64
	Rejected           []string // exclusion layers left out of the merge
	Degenerate         int      // boundary features left without polygonal area
	Duration           time.Duration
}

// LandcoverStats holds land-cover stage statistics
type LandcoverStats struct {
	Regions     int
	Unavailable int
	Skipped     int // features without a usable category code
	MatrixPath  string
	Duration    time.Duration
}

// RunStats holds combined statistics for a full run
type RunStats struct {
	Clip        ClipStats
	Constraints ConstraintStats
	Remaining   RemainingStats
	Landcover   LandcoverStats
}
