package overlay

import (
	"fmt"

	"github.com/twpayne/go-geos"
)

// Dissolve concatenates the features of all layers and unions them with no
// grouping key into one coverage. It is a full dissolve: overlapping and
// touching polygons coalesce regardless of their attributes.
//
// Dissolve over no usable geometry returns an empty coverage whose reason is
// ReasonNoInputs, never an error.
func Dissolve(name string, layers ...*Layer) (*Coverage, error) {
	srid := 0
	var geoms []*geos.Geom

	for _, l := range layers {
		if l == nil {
			continue
		}
		if !compatibleSRID(srid, l.SRID) {
			return nil, fmt.Errorf("dissolve %s: layer %s: %w", name, l.Name, crsMismatch(srid, l.SRID))
		}
		if srid == 0 {
			srid = l.SRID
		}
		for _, f := range l.Features {
			if IsPolygonal(f.Geom) {
				geoms = append(geoms, f.Geom)
			}
		}
	}

	if len(geoms) == 0 {
		return &Coverage{Name: name, SRID: srid, EmptyReason: ReasonNoInputs}, nil
	}

	merged, err := guard("union", func() *geos.Geom {
		return cascadedUnion(geoms)
	})
	if err != nil {
		return nil, fmt.Errorf("dissolve %s: %w", name, err)
	}

	merged = polygonalParts(merged)
	if !IsPolygonal(merged) {
		return &Coverage{Name: name, SRID: srid, EmptyReason: ReasonEmptyUnion}, nil
	}
	return &Coverage{Name: name, SRID: srid, Geom: merged}, nil
}

// cascadedUnion unions geometries pairwise by halving the slice, which keeps
// intermediate results small compared with folding left to right.
func cascadedUnion(geoms []*geos.Geom) *geos.Geom {
	if len(geoms) == 1 {
		return geoms[0].UnaryUnion()
	}

	mid := len(geoms) / 2
	left := cascadedUnion(geoms[:mid])
	right := cascadedUnion(geoms[mid:])
	return left.Union(right)
}
