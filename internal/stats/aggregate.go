package stats

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/wegman-software/parkarea-go/internal/overlay"
)

// SquareMetresPerHectare converts projected squared metres to hectares
const SquareMetresPerHectare = 10_000.0

// Row maps a category code to its summed area in hectares. Categories that
// are absent from the row are no-data, not zero.
type Row map[int]float64

// AreaByCategory sums feature areas per category value of the given attribute
// and converts them to hectares. Features whose attribute is missing or not an
// integer code are not counted and are reported in the second return value.
//
// This is a grouped aggregation and is unrelated to overlay.Dissolve, which
// unions geometry without any grouping key.
func AreaByCategory(layer *overlay.Layer, attribute string) (Row, int) {
	row := make(Row)
	skipped := 0

	for _, f := range layer.Features {
		code, ok := CategoryCode(f.Attributes[attribute])
		if !ok || f.Geom == nil {
			skipped++
			continue
		}
		row[code] += f.Geom.Area() / SquareMetresPerHectare
	}

	return row, skipped
}

// CategoryCode interprets an attribute value as an integer category code.
// DBF numeric fields arrive as strings or floats depending on the reader, so
// integral floats and numeric strings are accepted.
func CategoryCode(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		return integral(x)
	case float32:
		return integral(float64(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil {
			return integral(f)
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return integral(f)
		}
	}
	return 0, false
}

func integral(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
