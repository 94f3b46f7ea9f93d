package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/poverty-pockets/pockets-backend/internal/boundary"
	"github.com/spf13/cobra"
)

func filterGeoJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter-geojson <input.geojson> <output.geojson>",
		Short: "Keep boundary features that fall in the Bay Area",
		Long: `Filter-geojson keeps the features whose geometry bounds intersect the
bounding box (the Bay Area by default) and adds popup_zip_code and
popup_region_name properties from GEOID and NAMELSAD.`,
		Args: cobra.ExactArgs(2),
		RunE: runFilterGeoJSON,
	}

	cmd.Flags().Float64Slice("bbox", []float64{boundary.BayArea.Min[0], boundary.BayArea.Min[1], boundary.BayArea.Max[0], boundary.BayArea.Max[1]},
		"bounding box as minLon,minLat,maxLon,maxLat")

	return cmd
}

func runFilterGeoJSON(cmd *cobra.Command, args []string) error {
	bbox, _ := cmd.Flags().GetFloat64Slice("bbox")
	if len(bbox) != 4 || bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		return fmt.Errorf("--bbox needs minLon,minLat,maxLon,maxLat")
	}
	b := orb.Bound{Min: orb.Point{bbox[0], bbox[1]}, Max: orb.Point{bbox[2], bbox[3]}}

	fc, err := boundary.ReadFile(args[0])
	if err != nil {
		return err
	}
	out := boundary.FilterBBox(fc, b)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Kept %d of %d features, saved to %s\n", len(out.Features), len(fc.Features), args[1])
	return nil
}
