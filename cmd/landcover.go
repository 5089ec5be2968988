package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var landcoverCmd = &cobra.Command{
	Use:   "landcover",
	Short: "Aggregate land-cover categories over the remaining area",
	Long: `Clip each park's land-cover layer to the remaining area and sum the area
of every category code in hectares. The result matrix has one row per park
and one column per code; parks without land-cover data and codes absent from
a park are written as n/a.`,
	Args: cobra.NoArgs,
	Run:  runLandcover,
}

func init() {
	rootCmd.AddCommand(landcoverCmd)

	landcoverCmd.Flags().StringVar(&cfg.MatrixFile, "matrix-file", cfg.MatrixFile, "CSV file name inside the output directory")
	landcoverCmd.Flags().StringVar(&cfg.CategoryAttribute, "category-attribute", cfg.CategoryAttribute, "Attribute holding the land-cover category code")
}

func runLandcover(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	coord, closeStores := newCoordinator(ctx)
	defer closeStores()

	stats, err := coord.Landcover(ctx)
	if err != nil {
		exitWithError("Land-cover statistics failed", err)
	}
	fmt.Println(stats.MatrixPath)
}
