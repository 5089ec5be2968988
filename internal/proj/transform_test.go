package proj

import "testing"

func TestParseSRID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "27700", want: 27700},
		{in: "EPSG:27700", want: 27700},
		{in: "epsg:4326", want: 4326},
		{in: " 3857 ", want: 3857},
		{in: "EPSG:", wantErr: true},
		{in: "OSGB", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSRID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSRID(%q) expected error, got %d", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSRID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsGeographic(t *testing.T) {
	if !IsGeographic(SRID4326) {
		t.Error("EPSG:4326 should be geographic")
	}
	if IsGeographic(SRID27700) {
		t.Error("EPSG:27700 should be projected")
	}
}

func TestLabel(t *testing.T) {
	if got := Label(27700); got != "EPSG:27700" {
		t.Errorf("Label(27700) = %s", got)
	}
	if got := Label(0); got != "unknown" {
		t.Errorf("Label(0) = %s", got)
	}
}
