package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "Merge clipped constraints and remove priority habitats",
	Long: `Dissolve every clipped constraint layer into one coverage, saved as
constraints_matrix/merged_constraints, then subtract the dissolved priority
habitats from it and save constraints_matrix/constraints_matrix_no_habitats.`,
	Args: cobra.NoArgs,
	Run:  runConstraints,
}

func init() {
	rootCmd.AddCommand(constraintsCmd)
}

func runConstraints(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	coord, closeStores := newCoordinator(ctx)
	defer closeStores()

	if _, err := coord.Constraints(ctx); err != nil {
		exitWithError("Constraints failed", err)
	}
}
