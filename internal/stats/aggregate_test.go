package stats

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/wegman-software/parkarea-go/internal/overlay"
)

func square(x, y, size float64) string {
	return fmt.Sprintf("POLYGON((%[1]g %[2]g, %[3]g %[2]g, %[3]g %[4]g, %[1]g %[4]g, %[1]g %[2]g))",
		x, y, x+size, y+size)
}

func landcover(t *testing.T, features map[string]any) *overlay.Layer {
	t.Helper()
	l := overlay.NewLayer("mos80a", 27700)
	for wkt, code := range features {
		g, err := geos.NewGeomFromWKT(wkt)
		require.NoError(t, err)
		l.Add(g, map[string]any{"ATTR4": code})
	}
	return l
}

func TestAreaByCategory(t *testing.T) {
	layer := landcover(t, map[string]any{
		square(0, 0, 100):     7,         // 1 ha
		square(200, 0, 100):   "7",       // 1 ha, string from DBF
		square(400, 0, 200):   12.0,      // 4 ha, float from GeoJSON
		square(800, 0, 100):   "grass",   // not a code
		square(1000, 0, 100):  nil,       // missing
		square(1200, 0, 1000): int64(31), // 100 ha
	})

	row, skipped := AreaByCategory(layer, "ATTR4")

	assert.Equal(t, 2, skipped)
	require.Len(t, row, 3)
	assert.InDelta(t, 2.0, row[7], 1e-9)
	assert.InDelta(t, 4.0, row[12], 1e-9)
	assert.InDelta(t, 100.0, row[31], 1e-9)
}

func TestCategoryCode(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int
		wantOK bool
	}{
		{"int", 5, 5, true},
		{"int32", int32(6), 6, true},
		{"int64", int64(7), 7, true},
		{"integral float", 8.0, 8, true},
		{"fractional float", 8.5, 0, false},
		{"float32", float32(9), 9, true},
		{"json number", json.Number("10"), 10, true},
		{"padded string", "  11 ", 11, true},
		{"float string", "12.0", 12, true},
		{"text", "heath", 0, false},
		{"empty", "", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CategoryCode(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CategoryCode(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
