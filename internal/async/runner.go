package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/repository"
)

// RunResult summarizes one pass over a job.
type RunResult struct {
	Processed int
	// Stopped is set when the pass ended because the job was paused.
	Stopped  bool
	Finished bool
}

// Runner processes the pending rows of a job one at a time until none are left or the job is
// paused.
type Runner struct {
	repo       repository.JobRepository
	registry   *automation.Registry
	processors map[constants.KindName]RowProcessor
	fallback   RowProcessor
	rowDelay   time.Duration
	logger     *slog.Logger
}

type RunnerOption func(*Runner)

// WithProcessor sets the processor for one kind.
func WithProcessor(kind constants.KindName, p RowProcessor) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.processors[kind] = p
		}
	}
}

// WithRowDelay waits between rows so progress can be watched from a client.
func WithRowDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.rowDelay = d
		}
	}
}

func NewRunner(repo repository.JobRepository, registry *automation.Registry, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		repo:       repo,
		registry:   registry,
		processors: map[constants.KindName]RowProcessor{},
		fallback:   MarkerStamper{},
		logger:     logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) processorFor(kind constants.KindName) RowProcessor {
	if p, ok := r.processors[kind]; ok {
		return p
	}
	return r.fallback
}

// Run makes one pass over the job. A row whose processor fails is recorded with the error in
// its first marker and counts as processed.
func (r *Runner) Run(ctx context.Context, jobID string) (RunResult, error) {
	var res RunResult

	job, err := r.repo.GetJob(ctx, jobID)
	if err != nil {
		return res, fmt.Errorf("load job %s: %w", jobID, err)
	}
	kind, err := r.registry.Lookup(job.Kind)
	if err != nil {
		return res, err
	}
	proc := r.processorFor(kind.Name)

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		current, err := r.repo.GetJob(ctx, jobID)
		if err != nil {
			return res, err
		}
		if current.Status == constants.JobStatusPaused {
			res.Stopped = true
			return res, nil
		}

		pending, err := r.repo.PendingRows(ctx, jobID, 1)
		if err != nil {
			return res, err
		}
		if len(pending) == 0 {
			break
		}
		row := pending[0]

		if err := proc.Process(ctx, kind, &row); err != nil {
			r.logger.Warn("async.row.failed", "job_id", jobID, "row_id", row.ID, "error", err)
			row.Set(kind.PrimaryMarker(), "error: "+err.Error())
		}
		if !kind.IsProcessed(row) {
			row.Set(kind.PrimaryMarker(), MarkProcessed)
		}
		if err := r.repo.UpdateRow(ctx, row, true); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// tagged by a pause between the read and the write
				res.Stopped = true
				return res, nil
			}
			return res, err
		}
		res.Processed++

		if r.rowDelay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(r.rowDelay):
			}
		}
	}

	left, err := r.repo.CountUnprocessed(ctx, jobID)
	if err != nil {
		return res, err
	}
	if left == 0 {
		if err := r.repo.SetStatus(ctx, jobID, constants.JobStatusFinished); err != nil {
			return res, err
		}
		res.Finished = true
	}
	return res, nil
}
