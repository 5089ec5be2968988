package store

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geos"
)

// toGEOS converts an orb geometry to GEOS through WKB
func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	if g == nil {
		return nil, nil
	}
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	geom, err := geos.NewGeomFromWKB(b)
	if err != nil {
		return nil, fmt.Errorf("parse wkb: %w", err)
	}
	return geom, nil
}

// fromGEOS converts a GEOS geometry to orb through WKB
func fromGEOS(g *geos.Geom) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	geom, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return geom, nil
}

// assemblePolygons groups shapefile rings into polygons. Shapefiles store
// outer rings clockwise and holes counter-clockwise, with no explicit
// grouping; each hole is attached to the outer ring that contains it.
func assemblePolygons(rings []orb.Ring) orb.Geometry {
	var polys orb.MultiPolygon
	var holes []orb.Ring

	for _, r := range rings {
		if len(r) < 4 {
			continue
		}
		if r.Orientation() == orb.CW {
			polys = append(polys, orb.Polygon{r})
		} else {
			holes = append(holes, r)
		}
	}

	// Writers that ignore the winding rule produce only counter-clockwise rings.
	if len(polys) == 0 {
		for _, h := range holes {
			polys = append(polys, orb.Polygon{h})
		}
		holes = nil
	}

	for _, h := range holes {
		attached := false
		for i := range polys {
			if planar.RingContains(polys[i][0], h[0]) {
				polys[i] = append(polys[i], h)
				attached = true
				break
			}
		}
		if !attached {
			polys = append(polys, orb.Polygon{h})
		}
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	}
	return polys
}

// shapefileRings returns the rings of a polygonal geometry wound the way
// shapefiles expect: outer rings clockwise, holes counter-clockwise.
func shapefileRings(g orb.Geometry) []orb.Ring {
	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return nil
	}

	var rings []orb.Ring
	for _, p := range polys {
		for i, r := range p {
			ring := append(orb.Ring(nil), r...)
			outer := i == 0
			if (outer && ring.Orientation() != orb.CW) || (!outer && ring.Orientation() != orb.CCW) {
				ring.Reverse()
			}
			rings = append(rings, ring)
		}
	}
	return rings
}
