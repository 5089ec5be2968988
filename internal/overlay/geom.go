package overlay

import (
	"fmt"

	"github.com/twpayne/go-geos"
)

// guard runs a GEOS operation and converts a panic raised by the binding into
// ErrOverlay so a single malformed layer cannot bring down the run.
func guard(op string, fn func() *geos.Geom) (g *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("%w: %s: %v", ErrOverlay, op, r)
		}
	}()

	g = fn()
	if g == nil {
		return nil, fmt.Errorf("%w: %s returned no geometry", ErrOverlay, op)
	}
	return g, nil
}

// IsPolygonal reports whether g is a non-empty polygon or multipolygon
func IsPolygonal(g *geos.Geom) bool {
	if g == nil || g.IsEmpty() {
		return false
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return true
	}
	return false
}

// polygonalParts reduces a geometry collection to a multipolygon of its
// polygon members. Intersections at tangential contacts produce collections
// that mix a polygon with stray points or lines; only the area is kept.
// Anything that is not a collection is returned unchanged.
func polygonalParts(g *geos.Geom) *geos.Geom {
	if g == nil || g.TypeID() != geos.TypeIDGeometryCollection {
		return g
	}

	var parts []*geos.Geom
	collectPolygons(g, &parts)
	switch len(parts) {
	case 0:
		return g
	case 1:
		return parts[0]
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, parts)
}

func collectPolygons(g *geos.Geom, parts *[]*geos.Geom) {
	for i := 0; i < g.NumGeometries(); i++ {
		child := g.Geometry(i)
		switch child.TypeID() {
		case geos.TypeIDPolygon:
			if !child.IsEmpty() {
				*parts = append(*parts, child.Clone())
			}
		case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
			collectPolygons(child, parts)
		}
	}
}

// TypeName returns a short human readable name for a GEOS geometry type
func TypeName(g *geos.Geom) string {
	if g == nil {
		return "null"
	}
	switch g.TypeID() {
	case geos.TypeIDPoint:
		return "Point"
	case geos.TypeIDLineString:
		return "LineString"
	case geos.TypeIDLinearRing:
		return "LinearRing"
	case geos.TypeIDPolygon:
		return "Polygon"
	case geos.TypeIDMultiPoint:
		return "MultiPoint"
	case geos.TypeIDMultiLineString:
		return "MultiLineString"
	case geos.TypeIDMultiPolygon:
		return "MultiPolygon"
	case geos.TypeIDGeometryCollection:
		return "GeometryCollection"
	}
	return "Unknown"
}
