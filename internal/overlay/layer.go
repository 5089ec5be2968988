package overlay

import (
	"github.com/twpayne/go-geos"
)

// Reasons recorded on an empty Coverage so that "nothing to compute" and
// "computed and found nothing" stay distinguishable.
const (
	ReasonNoInputs        = "no valid inputs"
	ReasonEmptyUnion      = "union is empty"
	ReasonFullySubtracted = "fully subtracted"
)

// Feature is a geometry together with its attribute row.
type Feature struct {
	Geom       *geos.Geom
	Attributes map[string]any
}

// Layer is an ordered collection of features sharing one SRID.
// An SRID of 0 means the reference system is unknown and is treated as
// compatible with any other.
type Layer struct {
	Name     string
	SRID     int
	Features []Feature
}

// NewLayer creates an empty layer
func NewLayer(name string, srid int) *Layer {
	return &Layer{Name: name, SRID: srid}
}

// Add appends a feature
func (l *Layer) Add(g *geos.Geom, attrs map[string]any) {
	l.Features = append(l.Features, Feature{Geom: g, Attributes: attrs})
}

// Len returns the number of features
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Features)
}

// Area returns the summed planar area of all features in squared CRS units.
func (l *Layer) Area() float64 {
	if l == nil {
		return 0
	}
	var total float64
	for _, f := range l.Features {
		if f.Geom != nil {
			total += f.Geom.Area()
		}
	}
	return total
}

// derive returns an empty layer carrying the same name and SRID
func (l *Layer) derive(capacity int) *Layer {
	return &Layer{
		Name:     l.Name,
		SRID:     l.SRID,
		Features: make([]Feature, 0, capacity),
	}
}

// Coverage is a single polygonal geometry used as an operand or result of set
// operations. It has no attribute semantics. When Geom is nil the coverage is
// empty and EmptyReason says why.
type Coverage struct {
	Name        string
	SRID        int
	Geom        *geos.Geom
	EmptyReason string
}

// IsEmpty reports whether the coverage holds no area
func (c *Coverage) IsEmpty() bool {
	return c == nil || c.Geom == nil || c.Geom.IsEmpty()
}

// Area returns the coverage area in squared CRS units
func (c *Coverage) Area() float64 {
	if c.IsEmpty() {
		return 0
	}
	return c.Geom.Area()
}

// Parts returns the number of polygons making up the coverage
func (c *Coverage) Parts() int {
	if c.IsEmpty() {
		return 0
	}
	return c.Geom.NumGeometries()
}

// Layer wraps the coverage as a layer with at most one feature, for
// persistence and for use as the base operand of Difference.
func (c *Coverage) Layer() *Layer {
	l := &Layer{Name: c.Name, SRID: c.SRID}
	if !c.IsEmpty() {
		l.Add(c.Geom, map[string]any{})
	}
	return l
}

func compatibleSRID(a, b int) bool {
	return a == 0 || b == 0 || a == b
}
