package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/parkarea-go/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all stages (clip → constraints → remaining → landcover)",
	Long: `Run the complete pipeline. Every stage saves its artifacts, so a failed
run can be resumed with the individual stage commands.`,
	Args: cobra.NoArgs,
	Run:  runAll,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&rebuildCache, "rebuild-cache", false, "Rebuild the combined_constraints artifact even if it exists")
}

func runAll(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := context.Background()

	coord, closeStores := newCoordinator(ctx)
	defer closeStores()

	if rebuildCache {
		if err := coord.DropCache(ctx); err != nil {
			exitWithError("Failed to remove combined constraints", err)
		}
	}

	log.Info("Starting run",
		zap.String("variant", cfg.Variant),
		zap.String("store", cfg.Store),
		zap.Int("sources", len(cfg.Constraints)),
		zap.Int("regions", len(cfg.Regions)),
		zap.Int("workers", cfg.Workers))

	start := time.Now()
	stats, err := coord.Run(ctx)
	if err != nil {
		exitWithError("Run failed", err)
	}

	fmt.Printf("Total remaining area: %.2f hectares\n", stats.Remaining.RemainingHectares)
	fmt.Printf("Land-cover statistics: %s\n", stats.Landcover.MatrixPath)
	log.Info("Done", zap.Duration("total", time.Since(start).Round(time.Second)))
}
