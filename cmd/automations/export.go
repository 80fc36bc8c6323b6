package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Download a job's results workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <job-id>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	data, err := export.NewDownloader(a.gw, a.kind, a.logger).Download(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	path := exportOut
	if path == "" {
		path = args[0] + ".xlsx"
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
