package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wegman-software/parkarea-go/internal/config"
	"github.com/wegman-software/parkarea-go/internal/logger"
	"github.com/wegman-software/parkarea-go/internal/pipeline"
	"github.com/wegman-software/parkarea-go/internal/proj"
	"github.com/wegman-software/parkarea-go/internal/store"
)

var (
	cfg             = config.DefaultConfig()
	configFile      string
	projectionStr   string
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "parkarea",
	Short: "Remaining developable area and land-cover statistics for National Parks",
	Long: `parkarea derives the area left inside a set of park boundaries once
heritage sites, built-up land, protected wildlife sites, open water and
priority habitats are subtracted, then sums land-cover categories over it.

Stages, in order:
  clip         clip every constraint source to the park boundary
  constraints  merge clipped constraints and remove priority habitats
  remaining    subtract the constraints from the boundary
  landcover    aggregate land cover per park into a CSV matrix

"run" executes all four.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := applyConfigFile(cmd, configFile); err != nil {
				return err
			}
		}
		if verbose {
			cfg.Verbose = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}
		if cmd.Flags().Changed("metrics-interval") {
			cfg.MetricsInterval = metricsInterval
		}
		if cmd.Flags().Changed("srid") {
			srid, err := proj.ParseSRID(projectionStr)
			if err != nil {
				return err
			}
			cfg.SRID = srid
		}

		logger.Init(cfg.Verbose, cfg.LogFile)

		if proj.IsGeographic(cfg.SRID) {
			logger.Get().Warn("Reference system measures in degrees; hectare figures will be meaningless",
				zap.String("srid", proj.Label(cfg.SRID)))
		}
		return cfg.Validate()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file (flags override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding the input layers")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for artifacts and the statistics CSV")
	rootCmd.PersistentFlags().StringVar(&cfg.Store, "store", cfg.Store, "Layer store: dir, postgis or memory")
	rootCmd.PersistentFlags().StringVar(&cfg.Format, "format", cfg.Format, "Artifact format for the dir store: shp, geojson or parquet")
	rootCmd.PersistentFlags().StringVar(&cfg.Variant, "variant", cfg.Variant, "Remaining-area variant: direct or cached")
	rootCmd.PersistentFlags().StringVar(&projectionStr, "srid", proj.Label(cfg.SRID), "Reference system of layers that do not declare one")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", cfg.MetricsInterval, "Interval for system metrics logging (0 disables)")

	// Database flags for the postgis store
	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	rootCmd.PersistentFlags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")
}

// applyConfigFile loads the YAML file over the defaults and then re-applies
// every flag given on the command line, so flags win over the file.
func applyConfigFile(cmd *cobra.Command, path string) error {
	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	loaded, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	*cfg = *loaded

	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

// newCoordinator opens the configured stores and returns a coordinator over
// them together with a function that closes the stores.
func newCoordinator(ctx context.Context) (*pipeline.Coordinator, func()) {
	log := logger.Get()

	inputs, artifacts, err := store.Open(ctx, cfg)
	if err != nil {
		exitWithError("Failed to open store", err)
	}
	log.Debug("Stores opened",
		zap.String("store", cfg.Store),
		zap.String("data_dir", cfg.DataDir),
		zap.String("output_dir", cfg.OutputDir),
		zap.String("srid", proj.Label(cfg.SRID)))

	closeStores := func() {
		inputs.Close()
		if artifacts != inputs {
			artifacts.Close()
		}
	}
	return pipeline.NewCoordinator(cfg, inputs, artifacts), closeStores
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
