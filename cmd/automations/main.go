// Package main is the command-line client for the automation gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/constants"
)

var rootCmd = &cobra.Command{
	Use:   "automations",
	Short: "Upload, follow and control long-running automation jobs",
	Long: "automations talks to the automation gateway: it uploads spreadsheets as jobs, reports their " +
		"progress, pauses and resumes them, browses processed rows and downloads results.",
	SilenceUsage: true,
}

var (
	rootKind    string
	rootGateway string
	rootTimeout string
	rootVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootKind, "kind", "k", "", "Automation kind ("+strings.Join(constants.KindsAsStringSlice(), ", ")+"); defaults to AUTOMATION_KIND")
	rootCmd.PersistentFlags().StringVar(&rootGateway, "gateway", "", "Gateway base URL; defaults to GATEWAY_BASE_URL")
	rootCmd.PersistentFlags().StringVar(&rootTimeout, "timeout", "", "Per-request timeout such as 30s; defaults to GATEWAY_TIMEOUT")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Log every gateway request")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
