package overlay

import (
	"fmt"

	"github.com/twpayne/go-geos"
)

// Difference removes the subtract coverage from every feature of base and
// returns what remains, attributes kept. The operation is not commutative:
// base is always the layer being reduced.
//
// An empty subtract coverage leaves base unchanged. An empty base has nothing
// to reduce and yields ErrEmptyResult. Features consumed entirely are dropped,
// so the result may legitimately have no features. The second return value
// counts features left without polygonal area, as with Clip.
func Difference(base *Layer, subtract *Coverage) (*Layer, int, error) {
	if base.Len() == 0 {
		return nil, 0, fmt.Errorf("difference: base: %w", ErrEmptyResult)
	}
	if subtract != nil && !compatibleSRID(base.SRID, subtract.SRID) {
		return nil, 0, fmt.Errorf("difference %s: %w", base.Name, crsMismatch(base.SRID, subtract.SRID))
	}
	if subtract.IsEmpty() {
		out, discarded := FilterPolygons(base)
		return out, discarded, nil
	}

	prepared := subtract.Geom.Prepare()
	out := base.derive(base.Len())

	for i, f := range base.Features {
		if f.Geom == nil || f.Geom.IsEmpty() {
			continue
		}
		if !prepared.Intersects(f.Geom) {
			out.Features = append(out.Features, f)
			continue
		}

		g := f.Geom
		rest, err := guard("difference", func() *geos.Geom {
			return g.Difference(subtract.Geom)
		})
		if err != nil {
			return nil, 0, fmt.Errorf("difference %s feature %d: %w", base.Name, i, err)
		}
		out.Features = append(out.Features, Feature{Geom: polygonalParts(rest), Attributes: f.Attributes})
	}

	filtered, discarded := FilterPolygons(out)
	return filtered, discarded, nil
}

// DifferenceCoverage is the coverage form of Difference: a minus b.
func DifferenceCoverage(name string, a, b *Coverage) (*Coverage, error) {
	if a.IsEmpty() {
		return nil, fmt.Errorf("difference %s: base: %w", name, ErrEmptyResult)
	}
	if b != nil && !compatibleSRID(a.SRID, b.SRID) {
		return nil, fmt.Errorf("difference %s: %w", name, crsMismatch(a.SRID, b.SRID))
	}
	if b.IsEmpty() {
		return &Coverage{Name: name, SRID: a.SRID, Geom: a.Geom}, nil
	}

	rest, err := guard("difference", func() *geos.Geom {
		return a.Geom.Difference(b.Geom)
	})
	if err != nil {
		return nil, fmt.Errorf("difference %s: %w", name, err)
	}

	rest = polygonalParts(rest)
	if !IsPolygonal(rest) {
		return &Coverage{Name: name, SRID: a.SRID, EmptyReason: ReasonFullySubtracted}, nil
	}
	return &Coverage{Name: name, SRID: a.SRID, Geom: rest}, nil
}
