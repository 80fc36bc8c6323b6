package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/details"
	"github.com/joseph-ayodele/automations/internal/export"
)

var detailsCmd = &cobra.Command{
	Use:   "details <job-id>",
	Short: "Browse a job's processed rows one page at a time",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

var (
	detailsPage     int
	detailsPageSize int
	detailsFilter   string
	detailsXLSX     string
)

func init() {
	detailsCmd.Flags().IntVar(&detailsPage, "page", 1, "Page number, starting at 1")
	detailsCmd.Flags().IntVar(&detailsPageSize, "page-size", 0, "Rows per page (0 uses the kind's default)")
	detailsCmd.Flags().StringVarP(&detailsFilter, "filter", "f", "", "Substring of the business key")
	detailsCmd.Flags().StringVar(&detailsXLSX, "xlsx", "", "Also write the page to this workbook")
	rootCmd.AddCommand(detailsCmd)
}

func runDetails(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	page, err := details.NewBrowser(a.gw, a.kind, a.logger).Query(cmd.Context(), details.Query{
		JobID:    args[0],
		Page:     detailsPage,
		PageSize: detailsPageSize,
		Filter:   detailsFilter,
	})
	if err != nil {
		return err
	}

	header := []string{"KEY"}
	for _, c := range a.kind.Columns {
		header = append(header, c.Title)
	}
	if len(a.kind.Columns) == 0 {
		header = append(header, a.kind.BusinessKey)
	}
	rows := make([][]string, 0, len(page.Rows))
	for _, r := range page.Rows {
		line := []string{r.Key}
		for _, c := range a.kind.Columns {
			line = append(line, r.Get(c.Key))
		}
		if len(a.kind.Columns) == 0 {
			line = append(line, r.Get(a.kind.BusinessKey))
		}
		rows = append(rows, line)
	}

	out := cmd.OutOrStdout()
	if err := printTable(out, header, rows); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d (%d per page) of %d rows, source %s\n", page.Page, page.PageSize, page.Total, page.Source)

	if detailsXLSX == "" {
		return nil
	}
	data, err := export.NewService(a.logger).RowsXLSX(a.kind, page.JobRows())
	if err != nil {
		return err
	}
	if err := os.WriteFile(detailsXLSX, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", detailsXLSX, err)
	}
	fmt.Fprintf(out, "wrote %s\n", detailsXLSX)
	return nil
}
