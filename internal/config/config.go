package config

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreDir     = "dir"
	StorePostGIS = "postgis"
	StoreMemory  = "memory"
)

// Output formats for the directory store
const (
	FormatShapefile = "shp"
	FormatGeoJSON   = "geojson"
	FormatParquet   = "parquet"
)

// Remaining-area variants
const (
	// VariantDirect subtracts the union of habitats and clipped constraints
	// from the boundary in one step.
	VariantDirect = "direct"
	// VariantCached builds a combined-constraints artifact from habitats and
	// the constraints matrix, reusing it when it already exists.
	VariantCached = "cached"
)

// Source is a named constraint layer
type Source struct {
	Name  string `yaml:"name"`
	Layer string `yaml:"layer"`
}

// Region is a National Park tracked in the result matrix
type Region struct {
	Key       string `yaml:"key"`       // short name used for artifacts
	Name      string `yaml:"name"`      // row label in the matrix
	LandCover string `yaml:"landcover"` // land-cover layer; empty means none
	NoData    bool   `yaml:"no_data"`   // known to have no land-cover survey
}

// Config holds the configuration for a run. It is built once and passed to
// every stage; stages never read paths from anywhere else.
type Config struct {
	// Input settings
	DataDir          string   `yaml:"data_dir"`
	Boundary         string   `yaml:"boundary"`
	PriorityHabitats string   `yaml:"priority_habitats"`
	Constraints      []Source `yaml:"constraints"`
	Regions          []Region `yaml:"regions"`
	SRID             int      `yaml:"srid"`
	Encodings        []string `yaml:"encodings"` // attribute text encodings, tried in order

	// Output settings
	OutputDir  string `yaml:"output_dir"`
	Store      string `yaml:"store"`  // dir, postgis or memory
	Format     string `yaml:"format"` // artifact format for the dir store
	MatrixFile string `yaml:"matrix_file"`

	// Aggregation settings
	CategoryAttribute string `yaml:"category_attribute"`
	CategoryCodes     []int  `yaml:"category_codes"`
	IndexLabel        string `yaml:"index_label"`

	// Pipeline settings
	Variant string `yaml:"variant"`
	Workers int    `yaml:"workers"`

	// Database settings
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSchema   string `yaml:"db_schema"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose"`
	LogFile         string        `yaml:"log_file"`         // empty = no file logging
	MetricsInterval time.Duration `yaml:"metrics_interval"` // 0 disables system metrics
}

// DefaultConfig returns the England National Parks configuration
func DefaultConfig() *Config {
	codes := make([]int, 50)
	for i := range codes {
		codes[i] = i + 1
	}

	return &Config{
		DataDir:          "./data",
		Boundary:         "boundaries/National_Parks_England/National_Parks_(England)___Natural_England.shp",
		PriorityHabitats: "priority-habitats/Priority_Habitats_Inventory_England.shp",
		Constraints: []Source{
			{Name: "registered_parks", Layer: "constraints/National_Heritage_List_for_England.shp"},
			{Name: "built_up_land", Layer: "constraints/os_open_built_up_areas.shp"},
			{Name: "SSSI", Layer: "constraints/SSSI_England.shp"},
			{Name: "UK_lakes_CEH", Layer: "constraints/uklakes_v3_6_poly.shp"},
		},
		Regions:           defaultRegions(),
		SRID:              27700,
		Encodings:         []string{"utf-8", "latin1"},
		OutputDir:         "./data/outputs",
		Store:             StoreDir,
		Format:            FormatShapefile,
		MatrixFile:        "landcover_statistics.csv",
		CategoryAttribute: "ATTR4",
		CategoryCodes:     codes,
		IndexLabel:        "National Park",
		Variant:           VariantCached,
		Workers:           runtime.NumCPU(),
		DBHost:            "localhost",
		DBPort:            5432,
		DBName:            "parkarea",
		DBUser:            "postgres",
		DBSchema:          "public",
		MetricsInterval:   30 * time.Second,
	}
}

func defaultRegions() []Region {
	parks := []struct {
		key, name string
		noData    bool
	}{
		{"broads", "Broads", false},
		{"dales", "Yorkshire Dales", false},
		{"dartmoor", "Dartmoor", false},
		{"exmoor", "Exmoor", false},
		{"lakes", "Lake District", false},
		{"northum", "Northumberland", false},
		{"nym", "North York Moors", false},
		{"peak", "Peak District", false},
		{"south_downs", "South Downs", true},
		{"new_forest", "New Forest", true},
	}

	regions := make([]Region, 0, len(parks))
	for _, p := range parks {
		r := Region{Key: p.key, Name: p.name, NoData: p.noData}
		if !p.noData {
			r.LandCover = path.Join("landcover/mlcnp_data", p.key, "mos80a.shp")
		}
		regions = append(regions, r)
	}
	return regions
}

// LoadFile reads a YAML configuration on top of the defaults. Keys absent from
// the file keep their default values.
func LoadFile(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// CategoryPrefix returns the matrix column prefix, e.g. "ATTR4_"
func (c *Config) CategoryPrefix() string {
	return c.CategoryAttribute + "_"
}

// RegionNames returns the matrix row labels in configured order
func (c *Config) RegionNames() []string {
	names := make([]string, len(c.Regions))
	for i, r := range c.Regions {
		names[i] = r.Name
	}
	return names
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Boundary == "" {
		return fmt.Errorf("boundary layer is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.SRID < 0 {
		return fmt.Errorf("srid must be a positive EPSG code")
	}
	if len(c.Encodings) == 0 {
		return fmt.Errorf("at least one text encoding is required")
	}
	if c.CategoryAttribute == "" {
		return fmt.Errorf("category attribute is required")
	}

	switch c.Store {
	case StoreDir:
		switch c.Format {
		case FormatShapefile, FormatGeoJSON, FormatParquet:
		default:
			return fmt.Errorf("unknown output format %q (supported: shp, geojson, parquet)", c.Format)
		}
	case StorePostGIS, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (supported: dir, postgis, memory)", c.Store)
	}

	switch c.Variant {
	case VariantDirect, VariantCached:
	default:
		return fmt.Errorf("unknown variant %q (supported: direct, cached)", c.Variant)
	}

	seen := make(map[string]bool)
	for _, s := range c.Constraints {
		if s.Name == "" || s.Layer == "" {
			return fmt.Errorf("constraint sources need both name and layer")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate constraint source %q", s.Name)
		}
		seen[s.Name] = true
	}

	keys := make(map[string]bool)
	names := make(map[string]bool)
	for _, r := range c.Regions {
		if r.Key == "" || r.Name == "" {
			return fmt.Errorf("regions need both key and name")
		}
		if keys[r.Key] || names[r.Name] {
			return fmt.Errorf("duplicate region %q", r.Key)
		}
		keys[r.Key] = true
		names[r.Name] = true
	}
	return nil
}
