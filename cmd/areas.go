package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/territory"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Manage sales territories",
}

var areasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured territories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		areas, err := st.ListAreas(ctx)
		if err != nil {
			return eris.Wrap(err, "areas list")
		}

		if len(areas) == 0 {
			fmt.Println("no territories configured")
			return nil
		}
		for _, a := range areas {
			fmt.Printf("%-36s  %-24s  %-16s  bbox N%.5f S%.5f E%.5f W%.5f  streets=%d\n",
				a.ID, a.Name, a.City,
				a.Bounds.North, a.Bounds.South, a.Bounds.East, a.Bounds.West,
				len(a.Streets),
			)
		}
		return nil
	},
}

var areasImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a territory from a shapefile",
	Long: `Create a territory whose bounding box is the union of all shape
bounding boxes in the given shapefile. Street names given with --streets
become the fallback match list for leads without coordinates.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, _ := cmd.Flags().GetString("shapefile")
		name, _ := cmd.Flags().GetString("name")
		city, _ := cmd.Flags().GetString("city")
		streetsStr, _ := cmd.Flags().GetString("streets")

		if path == "" || name == "" {
			return eris.New("areas import: --shapefile and --name are required")
		}

		var streets []string
		if streetsStr != "" {
			streets = splitAndTrim(streetsStr)
		}

		area, err := territory.FromShapefile(path, name, city, streets)
		if err != nil {
			return eris.Wrap(err, "areas import")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		created, err := st.CreateArea(ctx, *area)
		if err != nil {
			return eris.Wrap(err, "areas import: store")
		}

		zap.L().Info("territory imported",
			zap.String("id", created.ID),
			zap.String("name", created.Name),
			zap.Float64("north", created.Bounds.North),
			zap.Float64("south", created.Bounds.South),
			zap.Float64("east", created.Bounds.East),
			zap.Float64("west", created.Bounds.West),
		)
		return nil
	},
}

func init() {
	areasImportCmd.Flags().String("shapefile", "", "path to the .shp file")
	areasImportCmd.Flags().String("name", "", "territory name")
	areasImportCmd.Flags().String("city", "", "city the territory belongs to")
	areasImportCmd.Flags().String("streets", "", "comma-separated fallback street names")
	areasCmd.AddCommand(areasListCmd)
	areasCmd.AddCommand(areasImportCmd)
	rootCmd.AddCommand(areasCmd)
}
