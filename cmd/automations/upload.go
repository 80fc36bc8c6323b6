package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx>",
	Short: "Upload a spreadsheet as a new job",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var uploadUser string

func init() {
	uploadCmd.Flags().StringVarP(&uploadUser, "user", "u", "", "Id of the user the job is created for (required)")
	if err := uploadCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	id, err := upload.NewClient(a.gw, a.kind, a.logger).Submit(cmd.Context(), upload.File{Name: filepath.Base(args[0]), Data: data}, uploadUser)
	if err != nil {
		return err
	}
	if id == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "uploaded (the gateway did not return a job id)")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded job %s\n", id)
	return nil
}
