package overlay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

const (
	testSRID  = 27700
	hectare   = 10_000.0
	tolerance = 1e-6
)

func mustGeom(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	require.NoError(t, err, "parsing %s", wkt)
	return g
}

// square returns the WKT of an axis aligned square with its lower left corner at (x, y)
func square(x, y, size float64) string {
	return fmt.Sprintf("POLYGON((%[1]g %[2]g, %[3]g %[2]g, %[3]g %[4]g, %[1]g %[4]g, %[1]g %[2]g))",
		x, y, x+size, y+size)
}

func layerOf(t *testing.T, name string, wkts ...string) *Layer {
	t.Helper()
	l := NewLayer(name, testSRID)
	for i, w := range wkts {
		l.Add(mustGeom(t, w), map[string]any{"id": i})
	}
	return l
}

func coverageOf(t *testing.T, name string, wkts ...string) *Coverage {
	t.Helper()
	c, err := Dissolve(name, layerOf(t, name, wkts...))
	require.NoError(t, err)
	return c
}
