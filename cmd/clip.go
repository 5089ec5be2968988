package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/parkarea-go/internal/logger"
)

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Clip constraint sources and priority habitats to the park boundary",
	Long: `Load each configured constraint source and the priority habitats, keep
polygon features, heal invalid topology and clip them to the park boundary.
Sources run in parallel; a source that is missing or fails is logged and
excluded without stopping the others. Results are saved as
clipped/<source>_clipped.`,
	Args: cobra.NoArgs,
	Run:  runClip,
}

func init() {
	rootCmd.AddCommand(clipCmd)
}

func runClip(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := context.Background()

	coord, closeStores := newCoordinator(ctx)
	defer closeStores()

	start := time.Now()
	stats, err := coord.Clip(ctx)
	if err != nil {
		exitWithError("Clip failed", err)
	}

	for _, s := range stats.Sources {
		if s.Err != nil {
			log.Warn("Excluded", zap.String("source", s.Name), zap.Error(s.Err))
			continue
		}
		log.Info("Clipped",
			zap.String("source", s.Name),
			zap.Int("features", s.Kept),
			zap.Float64("hectares", s.Hectares))
	}
	log.Info("Clip complete",
		zap.Int("excluded", stats.Excluded),
		zap.Duration("total", time.Since(start).Round(time.Millisecond)))
}
