package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/progress"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <job-id>",
	Short: "Recompute a job's progress and notify on completion",
	Long: "refresh reads every row of the job and reports processed/total. A full refresh of a " +
		"complete job also sends the completion notification; --initial never notifies.",
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

var (
	refreshInitial bool
	refreshTotal   int
	refreshNoBar   bool
)

func init() {
	refreshCmd.Flags().BoolVar(&refreshInitial, "initial", false, "Initial load: report progress without notifying")
	refreshCmd.Flags().IntVar(&refreshTotal, "total", 0, "Row count from the job header, when known (0 is a valid total)")
	refreshCmd.Flags().BoolVar(&refreshNoBar, "no-bar", false, "Print numbers only")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	req := progress.Request{JobID: args[0], Mode: progress.FullRefresh}
	if refreshInitial {
		req.Mode = progress.InitialLoad
	}
	if cmd.Flags().Changed("total") {
		total := refreshTotal
		req.KnownTotal = &total
	}

	res, err := progress.NewPoller(a.gw, a.kind, a.logger).Refresh(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !refreshNoBar {
		renderBars(out, []barLine{{label: res.JobID, progress: res.Progress}})
	}
	fmt.Fprintf(out, "job %s: %d/%d rows (%d%%)\n", res.JobID, res.Processed, res.Total, res.Percentage)
	if res.Complete {
		fmt.Fprintln(out, "complete")
	}

	n := res.Notification
	switch {
	case !n.Attempted:
	case n.Delivered:
		fmt.Fprintln(out, "completion notification sent")
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", n.Warning)
	}
	return nil
}
