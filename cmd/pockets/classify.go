package main

import (
	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/spf13/cobra"
)

type classifyOutput struct {
	IDColumn string                    `json:"id_column"`
	Count    int                       `json:"count"`
	Adopted  int                       `json:"adopted"`
	Entries  map[string]adoption.Entry `json:"entries"`
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <spreadsheet.csv>",
		Short: "Classify tracts from the adoption spreadsheet export",
		Long: `Classify reads the adoption spreadsheet CSV export and prints each tract's
adoption status, attribution and list columns as JSON.

A tract is adopted when its status column says so or when any row's
organization or business list mentions it.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	rows, err := adoption.ParseCSVFile(args[0])
	if err != nil {
		return err
	}
	ix, err := adoption.Classify(rows, sources.Adoption)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), output, classifyOutput{
		IDColumn: ix.IDColumn,
		Count:    ix.Len(),
		Adopted:  ix.AdoptedCount(),
		Entries:  ix.Entries(),
	})
}
