package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/jobs"
	"github.com/joseph-ayodele/automations/internal/progress"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the kind's jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

var (
	jobsOffset   int
	jobsLimit    int
	jobsProgress bool
)

func init() {
	jobsCmd.Flags().IntVar(&jobsOffset, "offset", 0, "Jobs to skip")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 0, "Page size (0 asks for every job)")
	jobsCmd.Flags().BoolVarP(&jobsProgress, "progress", "p", false, "Compute each job's progress and draw bars")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	lister := jobs.NewLister(a.gw, a.kind, a.logger,
		jobs.WithConcurrency(a.cfg.Gateway.OverviewConcurrency),
		jobs.WithPoller(progress.NewPoller(a.gw, a.kind, a.logger)),
	)
	listing, err := lister.List(cmd.Context(), jobsOffset, jobsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(listing.Jobs))
	for _, j := range listing.Jobs {
		rows = append(rows, []string{
			j.ID.String(),
			j.Label,
			j.UploadedBy,
			formatTime(j.UploadedAt.Time),
			rowCount(j),
			string(j.Status),
		})
	}
	if err := printTable(out, []string{"ID", "FILE", "USER", "UPLOADED", "ROWS", "STATUS"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d jobs\n", len(listing.Jobs), listing.Total)

	if !jobsProgress || len(listing.Jobs) == 0 {
		return nil
	}
	items := lister.Overview(cmd.Context(), listing.Jobs)
	lines := make([]barLine, 0, len(items))
	for _, it := range items {
		if it.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "job %s: %v\n", it.Job.ID, it.Err)
			continue
		}
		lines = append(lines, barLine{label: it.Job.ID.String(), progress: it.Progress})
	}
	renderBars(out, lines)
	return nil
}

func rowCount(j entity.Job) string {
	if j.TotalRows == nil {
		return "-"
	}
	return strconv.Itoa(*j.TotalRows)
}
