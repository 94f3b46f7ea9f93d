package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/report"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <joined.json> [id...]",
		Short: "Aggregate a selection of a joined dataset",
		Long: `Report sums and averages the configured fields over the given identifiers
of a dataset written by "pockets join". With no identifiers every record is
included. Values that are missing or not numeric are left out.

Examples:
  pockets report tracts.json 06013353001 06013353002
  pockets report --json tracts.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReport,
	}

	cmd.Flags().Bool("json", false, "print the raw result as JSON")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	var in joinedFile
	if err := readJSON(args[0], &in); err != nil {
		return err
	}
	normalize, ok := geoid.ForKind(in.Kind)
	if !ok {
		normalize = geoid.NormalizeTract
	}
	d := join.Join([]tabular.Partial{in.Records}, normalize)

	ids := args[1:]
	if len(ids) == 0 {
		ids = d.Keys()
	}
	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := d.Canonical(id); !ok {
			if canon, ok := normalize(id); ok {
				id = canon
			}
		}
		resolved = append(resolved, id)
	}

	cfg := sources.Aggregate
	res := report.Aggregate(d.Records(resolved), cfg)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), "-", res)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	summary := report.Summarize(res, cfg)
	fmt.Fprintf(w, "Records\t%s\n", report.FormatCount(int64(summary.Count)))
	for _, l := range summary.Lines {
		fmt.Fprintf(w, "%s\t%s\n", l.Label, l.Value)
	}
	if missing := len(ids) - res.Count; missing > 0 {
		fmt.Fprintf(w, "Not found\t%d of %d (%s)\n", missing, len(ids), strings.Join(notFound(d, resolved), ", "))
	}
	return w.Flush()
}

func notFound(d *join.Dataset, ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := d.Canonical(id); !ok {
			out = append(out, id)
		}
	}
	return out
}
