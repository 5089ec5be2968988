package store

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(pts ...orb.Point) orb.Ring { return orb.Ring(pts) }

func TestAssemblePolygonsAttachesHoles(t *testing.T) {
	outerA := ring(orb.Point{0, 0}, orb.Point{0, 10}, orb.Point{10, 10}, orb.Point{10, 0}, orb.Point{0, 0})
	outerB := ring(orb.Point{20, 0}, orb.Point{20, 10}, orb.Point{30, 10}, orb.Point{30, 0}, orb.Point{20, 0})
	holeB := ring(orb.Point{22, 2}, orb.Point{28, 2}, orb.Point{28, 8}, orb.Point{22, 8}, orb.Point{22, 2})
	require.Equal(t, orb.CW, outerA.Orientation())
	require.Equal(t, orb.CCW, holeB.Orientation())

	g := assemblePolygons([]orb.Ring{outerA, outerB, holeB})

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 1)
	assert.Len(t, mp[1], 2)
}

func TestAssemblePolygonsCounterClockwiseOnly(t *testing.T) {
	ccw := ring(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 10}, orb.Point{0, 10}, orb.Point{0, 0})

	g := assemblePolygons([]orb.Ring{ccw})

	p, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, p, 1)
}

func TestShapefileRingsWinding(t *testing.T) {
	p := orb.Polygon{
		ring(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 10}, orb.Point{0, 10}, orb.Point{0, 0}),
		ring(orb.Point{2, 2}, orb.Point{2, 8}, orb.Point{8, 8}, orb.Point{8, 2}, orb.Point{2, 2}),
	}

	rings := shapefileRings(p)

	require.Len(t, rings, 2)
	assert.Equal(t, orb.CW, rings[0].Orientation())
	assert.Equal(t, orb.CCW, rings[1].Orientation())
	// input is untouched
	assert.Equal(t, orb.CCW, p[0].Orientation())
}
