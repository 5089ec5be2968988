package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCache bool

var remainingCmd = &cobra.Command{
	Use:   "remaining",
	Short: "Subtract constraints from the boundary",
	Long: `Compute the remaining area inside the park boundary.

With --variant direct the union of priority habitats and all clipped
constraints is subtracted in one step. With --variant cached (the default) a
combined_constraints artifact is built from priority habitats and the
constraints matrix, reused on later runs while it exists, clipped to the
boundary and subtracted.`,
	Args: cobra.NoArgs,
	Run:  runRemaining,
}

func init() {
	rootCmd.AddCommand(remainingCmd)

	remainingCmd.Flags().BoolVar(&rebuildCache, "rebuild-cache", false, "Rebuild the combined_constraints artifact even if it exists")
}

func runRemaining(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	coord, closeStores := newCoordinator(ctx)
	defer closeStores()

	if rebuildCache {
		if err := coord.DropCache(ctx); err != nil {
			exitWithError("Failed to remove combined constraints", err)
		}
	}

	stats, err := coord.Remaining(ctx)
	if err != nil {
		exitWithError("Remaining area failed", err)
	}
	fmt.Printf("Total remaining area: %.2f hectares\n", stats.RemainingHectares)
}
