package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/wegman-software/parkarea-go/internal/overlay"
)

const testSRID = 27700

func square(x, y, size float64) string {
	return fmt.Sprintf("POLYGON((%[1]g %[2]g, %[3]g %[2]g, %[3]g %[4]g, %[1]g %[4]g, %[1]g %[2]g))",
		x, y, x+size, y+size)
}

func mustGeom(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	require.NoError(t, err)
	return g
}

func sampleLayer(t *testing.T) *overlay.Layer {
	t.Helper()
	l := overlay.NewLayer("sample", testSRID)
	l.Add(mustGeom(t, square(0, 0, 100)), map[string]any{"NAME": "Moor", "ATTR4": 12})
	l.Add(mustGeom(t, "POLYGON((200 0, 300 0, 300 100, 200 100, 200 0), (240 40, 260 40, 260 60, 240 60, 240 40))"),
		map[string]any{"NAME": "Heath", "ATTR4": 7})
	return l
}
