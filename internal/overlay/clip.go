package overlay

import (
	"fmt"

	"github.com/twpayne/go-geos"
)

// Clip truncates every feature of layer to the boundary coverage. Features
// that miss the boundary are dropped, features inside it are kept as they
// are, and the rest are cut to the overlapping part with attributes
// unchanged. Degenerate results (points or lines left by tangential contact)
// are removed and counted in the second return value.
func Clip(layer *Layer, boundary *Coverage) (*Layer, int, error) {
	if boundary.IsEmpty() {
		return nil, 0, fmt.Errorf("clip %s: boundary: %w", layer.Name, ErrEmptyResult)
	}
	if !compatibleSRID(layer.SRID, boundary.SRID) {
		return nil, 0, fmt.Errorf("clip %s: %w", layer.Name, crsMismatch(layer.SRID, boundary.SRID))
	}

	prepared := boundary.Geom.Prepare()
	out := layer.derive(layer.Len())

	for i, f := range layer.Features {
		if f.Geom == nil || f.Geom.IsEmpty() {
			continue
		}
		if !prepared.Intersects(f.Geom) {
			continue
		}
		if prepared.Contains(f.Geom) {
			out.Features = append(out.Features, f)
			continue
		}

		g := f.Geom
		clipped, err := guard("intersection", func() *geos.Geom {
			return g.Intersection(boundary.Geom)
		})
		if err != nil {
			return nil, 0, fmt.Errorf("clip %s feature %d: %w", layer.Name, i, err)
		}
		out.Features = append(out.Features, Feature{Geom: polygonalParts(clipped), Attributes: f.Attributes})
	}

	if out.SRID == 0 {
		out.SRID = boundary.SRID
	}

	filtered, degenerate := FilterPolygons(out)
	return filtered, degenerate, nil
}
