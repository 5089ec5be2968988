package overlay

import (
	"github.com/twpayne/go-geos"
)

// quadSegments is the arc approximation passed to the zero-width buffer. It
// has no effect on a zero distance but GEOS requires a value.
const quadSegments = 8

// RepairReport summarises a Repair pass
type RepairReport struct {
	Input   int
	Healed  int // features that were invalid on input and valid afterwards
	Dropped []RepairFailure
}

// Repair heals polygon topology with a zero-distance buffer. Attributes are
// carried over unchanged. Features that collapse to nothing, stay invalid, or
// make GEOS fail are dropped and listed in the report.
func Repair(layer *Layer) (*Layer, RepairReport) {
	report := RepairReport{Input: layer.Len()}
	out := layer.derive(layer.Len())

	for i, f := range layer.Features {
		if f.Geom == nil {
			report.Dropped = append(report.Dropped, RepairFailure{Layer: layer.Name, Index: i, Reason: "null geometry"})
			continue
		}

		wasValid := isValid(f.Geom)

		fixed, err := guard("buffer", func() *geos.Geom {
			return f.Geom.Buffer(0, quadSegments)
		})
		if err != nil {
			report.Dropped = append(report.Dropped, RepairFailure{Layer: layer.Name, Index: i, Reason: err.Error()})
			continue
		}
		if fixed.IsEmpty() {
			report.Dropped = append(report.Dropped, RepairFailure{Layer: layer.Name, Index: i, Reason: "collapsed to empty"})
			continue
		}
		if !isValid(fixed) {
			report.Dropped = append(report.Dropped, RepairFailure{Layer: layer.Name, Index: i, Reason: fixed.IsValidReason()})
			continue
		}

		if !wasValid {
			report.Healed++
		}
		out.Features = append(out.Features, Feature{Geom: fixed, Attributes: f.Attributes})
	}

	return out, report
}

func isValid(g *geos.Geom) (valid bool) {
	defer func() {
		if recover() != nil {
			valid = false
		}
	}()
	return g.IsValid()
}
