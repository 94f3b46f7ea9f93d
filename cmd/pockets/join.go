package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/boundary"
	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
	"github.com/spf13/cobra"
)

func joinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join [matrix.json|export.csv...]",
		Short: "Join census response files into one dataset",
		Long: `Join reads census API responses saved as JSON (an array of arrays whose
first row is the header) and joins them on the normalized identifier.

Every non-key column is kept. Files ending in .csv are spreadsheet exports
keyed by --id-column. Boundary properties from a GeoJSON file can be joined in
with --geojson.

Examples:
  # Join three tract tables
  pockets join population.json profile.json income.json -o tracts.json

  # Add spreadsheet attributes keyed by a GEOID column
  pockets join population.json attributes.csv --id-column GEOID

  # Join ZIP tables with boundary properties
  pockets join --kind zip --geojson zips.geojson pop_zcta.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runJoin,
	}

	cmd.Flags().String("kind", "tract", "identifier kind (tract, zip)")
	cmd.Flags().String("geojson", "", "boundary file whose feature properties join in")
	cmd.Flags().String("id-column", "GEOID", "identifier column of .csv inputs")
	cmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")

	return cmd
}

func runJoin(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	geoPath, _ := cmd.Flags().GetString("geojson")
	output, _ := cmd.Flags().GetString("output")
	idColumn, _ := cmd.Flags().GetString("id-column")

	normalize, ok := geoid.ForKind(kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", kind)
	}
	keys := tabular.TractKey
	candidates := []string{"GEOID", "GEOID20", "GEOID10"}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "zip", "zips", "zcta":
		keys = []string{tabular.ColZCTA}
		candidates = sources.ZipFields
	}

	partials := make([]tabular.Partial, 0, len(args)+1)
	for _, path := range args {
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			p, err := readSpreadsheet(path, idColumn)
			if err != nil {
				return err
			}
			partials = append(partials, p)
			continue
		}

		var m tabular.Matrix
		if err := readJSON(path, &m); err != nil {
			return err
		}
		a := tabular.Adapter{Name: path, KeyColumns: keys, Fields: nonKeyColumns(m, keys)}
		p, st := a.Adapt(m)
		if st.MissingKey {
			return fmt.Errorf("%s: missing key columns %v", path, keys)
		}
		logging.LogTransform(path, st.Rows, st.Kept, st.Skipped, 0)
		partials = append(partials, p)
	}

	if geoPath != "" {
		fc, err := boundary.ReadFile(geoPath)
		if err != nil {
			return err
		}
		field, err := boundary.ResolveField(fc, candidates)
		if err != nil {
			return fmt.Errorf("%s: %w", geoPath, err)
		}
		partials = append(partials, boundary.Partial(fc, field, nil))
	}

	d := join.Join(partials, normalize)
	return writeJSON(cmd.OutOrStdout(), output, newJoinedFile(kind, d))
}

func nonKeyColumns(m tabular.Matrix, keys []string) []string {
	if len(m) == 0 {
		return nil
	}
	isKey := map[string]bool{}
	for _, k := range keys {
		isKey[k] = true
	}
	var out []string
	for _, h := range m[0] {
		name := tabular.CellString(h)
		if !isKey[name] && name != tabular.ColState && name != tabular.ColCounty {
			out = append(out, name)
		}
	}
	return out
}

// readSpreadsheet adapts a CSV export keyed by idColumn.
func readSpreadsheet(path, idColumn string) (tabular.Partial, error) {
	rows, err := adoption.ParseCSVFile(path)
	if err != nil {
		return nil, err
	}
	maps := make([]map[string]string, len(rows))
	for i, r := range rows {
		maps[i] = r
	}
	p := tabular.AdaptRows(maps, idColumn, nil)
	if len(rows) > 0 && len(p) == 0 {
		return nil, fmt.Errorf("%s: no rows carry %q", path, idColumn)
	}
	logging.LogTransform(path, len(rows), len(p), len(rows)-len(p), 0)
	return p, nil
}
