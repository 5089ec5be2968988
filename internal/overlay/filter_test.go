package overlay

import (
	"testing"
)

func TestFilterPolygons(t *testing.T) {
	in := layerOf(t, "noise",
		"POINT(1 1)",
		"LINESTRING(0 0, 10 10)",
		square(0, 0, 10),
		"MULTIPOLYGON(((20 20, 30 20, 30 30, 20 30, 20 20)), ((40 40, 50 40, 50 50, 40 50, 40 40)))",
		"POLYGON EMPTY",
		"GEOMETRYCOLLECTION(POINT(1 1), LINESTRING(0 0, 1 1))",
	)
	in.Add(nil, nil)

	out, discarded := FilterPolygons(in)

	if out.Len() != 2 {
		t.Fatalf("expected 2 polygonal features, got %d", out.Len())
	}
	if discarded != 5 {
		t.Errorf("expected 5 discarded features, got %d", discarded)
	}
	if out.Features[0].Attributes["id"] != 2 || out.Features[1].Attributes["id"] != 3 {
		t.Errorf("filter did not preserve feature order: %v, %v",
			out.Features[0].Attributes, out.Features[1].Attributes)
	}
	if out.Name != "noise" || out.SRID != testSRID {
		t.Errorf("layer identity not preserved: %s EPSG:%d", out.Name, out.SRID)
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		wkt  string
		want string
	}{
		{"POINT(0 0)", "Point"},
		{"LINESTRING(0 0, 1 1)", "LineString"},
		{square(0, 0, 1), "Polygon"},
		{"MULTIPOLYGON(((0 0, 1 0, 1 1, 0 0)))", "MultiPolygon"},
		{"GEOMETRYCOLLECTION(POINT(0 0))", "GeometryCollection"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := TypeName(mustGeom(t, tt.wkt)); got != tt.want {
				t.Errorf("TypeName(%s) = %s, want %s", tt.wkt, got, tt.want)
			}
		})
	}

	if got := TypeName(nil); got != "null" {
		t.Errorf("TypeName(nil) = %s, want null", got)
	}
}
