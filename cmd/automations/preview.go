package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/ingest"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file.xlsx>",
	Short: "Show the rows a spreadsheet would upload",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var previewLimit int

func init() {
	previewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 10, "Rows to print (0 for all)")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	p, err := ingest.ParseFile(args[0])
	if err != nil {
		return err
	}

	header := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		header[i] = c.Title
	}
	rows := p.Rows
	if previewLimit > 0 && len(rows) > previewLimit {
		rows = rows[:previewLimit]
	}
	table := make([][]string, 0, len(rows))
	for _, rec := range rows {
		line := make([]string, len(p.Columns))
		for i, c := range p.Columns {
			line[i] = rec[c.Key]
		}
		table = append(table, line)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sheet %q: %d rows\n", p.Sheet, len(p.Rows))
	return printTable(out, header, table)
}
