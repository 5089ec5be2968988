package overlay

import (
	"errors"
	"fmt"
)

var (
	// ErrOverlay is returned when GEOS rejects an operand it cannot process.
	ErrOverlay = errors.New("overlay failed")
	// ErrEmptyResult marks an operation that legitimately has nothing to work on.
	ErrEmptyResult = errors.New("empty result")
	// ErrCRSMismatch is returned when operands carry different SRIDs.
	ErrCRSMismatch = errors.New("crs mismatch")
)

// RepairFailure records a feature dropped because it could not be healed.
type RepairFailure struct {
	Layer  string
	Index  int
	Reason string
}

func (f RepairFailure) Error() string {
	return fmt.Sprintf("repair %s feature %d: %s", f.Layer, f.Index, f.Reason)
}

func crsMismatch(a, b int) error {
	return fmt.Errorf("%w: EPSG:%d vs EPSG:%d", ErrCRSMismatch, a, b)
}
