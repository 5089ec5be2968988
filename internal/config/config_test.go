package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if len(cfg.CategoryCodes) != 50 || cfg.CategoryCodes[0] != 1 || cfg.CategoryCodes[49] != 50 {
		t.Errorf("expected category codes 1..50, got %v", cfg.CategoryCodes)
	}
	if cfg.CategoryPrefix() != "ATTR4_" {
		t.Errorf("expected prefix ATTR4_, got %s", cfg.CategoryPrefix())
	}
	if len(cfg.Regions) != 10 {
		t.Errorf("expected 10 regions, got %d", len(cfg.Regions))
	}

	for _, r := range cfg.Regions {
		if r.NoData && r.LandCover != "" {
			t.Errorf("region %s is no-data but has a land-cover layer", r.Key)
		}
		if !r.NoData && r.LandCover == "" {
			t.Errorf("region %s has no land-cover layer", r.Key)
		}
	}
}

func TestRegionNamesKeepOrder(t *testing.T) {
	cfg := DefaultConfig()
	names := cfg.RegionNames()
	if names[0] != "Broads" || names[len(names)-1] != "New Forest" {
		t.Errorf("unexpected region order: %v", names)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing boundary", func(c *Config) { c.Boundary = "" }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"no encodings", func(c *Config) { c.Encodings = nil }},
		{"no category attribute", func(c *Config) { c.CategoryAttribute = "" }},
		{"unknown store", func(c *Config) { c.Store = "s3" }},
		{"unknown format", func(c *Config) { c.Format = "gpkg" }},
		{"unknown variant", func(c *Config) { c.Variant = "both" }},
		{"duplicate source", func(c *Config) {
			c.Constraints = append(c.Constraints, Source{Name: "SSSI", Layer: "x.shp"})
		}},
		{"unnamed source", func(c *Config) { c.Constraints = []Source{{Layer: "x.shp"}} }},
		{"duplicate region", func(c *Config) { c.Regions = append(c.Regions, c.Regions[0]) }},
		{"region without key", func(c *Config) { c.Regions = []Region{{Name: "Dartmoor"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// Format is only checked for the directory store.
	cfg := DefaultConfig()
	cfg.Store = StoreMemory
	cfg.Format = "gpkg"
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory store should ignore format: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	yamlDoc := `
data_dir: /srv/parks
variant: direct
format: parquet
workers: 3
metrics_interval: 10s
encodings: [utf-8, windows-1252]
constraints:
  - name: SSSI
    layer: sssi.geojson
regions:
  - key: dartmoor
    name: Dartmoor
    landcover: landcover/dartmoor.geojson
  - key: new_forest
    name: New Forest
    no_data: true
`
	file := filepath.Join(t.TempDir(), "parkarea.yaml")
	if err := os.WriteFile(file, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}

	if cfg.DataDir != "/srv/parks" || cfg.Variant != VariantDirect || cfg.Format != FormatParquet {
		t.Errorf("scalar overrides not applied: %+v", cfg)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Workers)
	}
	if cfg.MetricsInterval != 10*time.Second {
		t.Errorf("expected 10s metrics interval, got %s", cfg.MetricsInterval)
	}
	if len(cfg.Constraints) != 1 || cfg.Constraints[0].Layer != "sssi.geojson" {
		t.Errorf("constraints not replaced: %+v", cfg.Constraints)
	}
	if len(cfg.Regions) != 2 || !cfg.Regions[1].NoData {
		t.Errorf("regions not replaced: %+v", cfg.Regions)
	}
	// Untouched keys keep defaults.
	if cfg.CategoryAttribute != "ATTR4" || cfg.SRID != 27700 {
		t.Errorf("defaults lost: attr=%s srid=%d", cfg.CategoryAttribute, cfg.SRID)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	file := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(file, []byte("workers: [not, a, number]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(file); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestConnectionString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPassword = "secret"
	want := "host=localhost port=5432 dbname=parkarea user=postgres sslmode=disable password=secret"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
