package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/control"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/jobs"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Ask the gateway to pause a job",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runControl(cmd, control.CommandPause, args[0]) },
}

var resumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Ask the gateway to resume a paused job",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runControl(cmd, control.CommandResume, args[0]) },
}

func init() {
	rootCmd.AddCommand(pauseCmd, resumeCmd)
}

// tracker holds the optimistic pause flag between a command and the listing that follows it.
var tracker control.Tracker

// runControl reports any answer as sent. The gateway's reply is not a confirmation, so the job
// list is fetched again and the job's listed status is printed.
func runControl(cmd *cobra.Command, c control.Command, jobID string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	client := control.NewClient(a.gw, a.kind, a.logger)

	var ack control.Ack
	if c == control.CommandPause {
		ack, err = client.Pause(cmd.Context(), jobID)
	} else {
		ack, err = client.Resume(cmd.Context(), jobID)
	}
	if err != nil {
		return err
	}
	if c == control.CommandPause {
		tracker.MarkPaused(jobID)
	} else {
		tracker.MarkResumed(jobID)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s sent for job %s (gateway answered %d)\n", c, ack.JobID, ack.Status)

	listing, err := jobs.NewLister(a.gw, a.kind, a.logger).List(cmd.Context(), 0, 0)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: job list not refreshed: %v\n", err)
		return nil
	}
	var current *entity.Job
	for i := range listing.Jobs {
		if listing.Jobs[i].ID.String() == jobID {
			current = &listing.Jobs[i]
			break
		}
	}
	if current == nil {
		tracker.Reconcile(listing.Jobs)
		fmt.Fprintf(out, "job %s is not in the %s job list\n", jobID, a.kind.Name)
		return nil
	}
	pending := tracker.IsPaused(*current) && current.Status != constants.JobStatusPaused
	tracker.Reconcile(listing.Jobs)
	if pending {
		fmt.Fprintf(out, "job %s status %s (pause not applied yet)\n", jobID, current.Status)
		return nil
	}
	fmt.Fprintf(out, "job %s status %s\n", jobID, current.Status)
	return nil
}
