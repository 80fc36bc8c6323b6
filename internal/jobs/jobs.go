// Package jobs lists automation headers and computes a progress overview across them.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
	"github.com/joseph-ayodele/automations/internal/progress"
)

const defaultConcurrency = 4

// Listing is one page of job headers. Total is the server's count, or len(Jobs) when the
// server sent a bare array.
type Listing struct {
	Jobs  []entity.Job
	Total int
}

// Item is one job of an overview. Err is set when that job's progress could not be computed;
// the other items are unaffected.
type Item struct {
	Job      entity.Job
	Progress entity.Progress
	Complete bool
	Err      error
}

// Lister reads job headers for one kind.
type Lister struct {
	gw          *gateway.Client
	kind        automation.Kind
	poller      *progress.Poller
	concurrency int
	logger      *slog.Logger
}

type Option func(*Lister)

// WithConcurrency bounds the number of progress reads an overview runs at once.
func WithConcurrency(n int) Option {
	return func(l *Lister) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithPoller replaces the poller used by Overview.
func WithPoller(p *progress.Poller) Option {
	return func(l *Lister) {
		if p != nil {
			l.poller = p
		}
	}
}

func NewLister(gw *gateway.Client, kind automation.Kind, logger *slog.Logger, opts ...Option) *Lister {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lister{gw: gw, kind: kind, concurrency: defaultConcurrency, logger: logger}
	for _, o := range opts {
		o(l)
	}
	if l.poller == nil {
		l.poller = progress.NewPoller(gw, kind, logger)
	}
	return l
}

type listingObject struct {
	Rows  *[]entity.Job `json:"rows"`
	Jobs  *[]entity.Job `json:"jobs"`
	Total *int          `json:"total"`
}

// List fetches job headers. limit <= 0 asks for every job.
func (l *Lister) List(ctx context.Context, offset, limit int) (Listing, error) {
	q := url.Values{}
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		q.Set(automation.ParamOffset, strconv.Itoa(offset))
		q.Set(automation.ParamLimit, strconv.Itoa(limit))
	}

	resp := l.gw.Get(ctx, l.kind.Endpoints.ListJobs, q)
	if resp.Outcome != gateway.OutcomeOK {
		l.logger.Warn("jobs.list.failed", "kind", l.kind.Name, "outcome", resp.Outcome.String(), "status", resp.Status)
		return Listing{}, common.NewAppError(common.CodeQuery, "list jobs", resp.AsError())
	}
	if err := listSchema.Validate(resp.Body); err != nil {
		return Listing{}, common.NewAppError(common.CodeQuery, "malformed job listing", err)
	}

	out, err := decodeListing(resp.Body)
	if err != nil {
		return Listing{}, common.NewAppError(common.CodeQuery, "malformed job listing", err)
	}
	l.logger.Info("jobs.list.ok", "kind", l.kind.Name, "jobs", len(out.Jobs), "total", out.Total)
	return out, nil
}

func decodeListing(body []byte) (Listing, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var jobs []entity.Job
		if err := json.Unmarshal(body, &jobs); err != nil {
			return Listing{}, err
		}
		return Listing{Jobs: jobs, Total: len(jobs)}, nil
	}

	var obj listingObject
	if err := json.Unmarshal(body, &obj); err != nil {
		return Listing{}, err
	}
	var out Listing
	switch {
	case obj.Rows != nil:
		out.Jobs = *obj.Rows
	case obj.Jobs != nil:
		out.Jobs = *obj.Jobs
	}
	out.Total = len(out.Jobs)
	if obj.Total != nil {
		out.Total = *obj.Total
	}
	return out, nil
}

// Overview computes an initial-load progress for every job, a bounded number at a time. It
// never notifies and never fails as a whole; per-job failures land on the item.
func (l *Lister) Overview(ctx context.Context, jobs []entity.Job) []Item {
	start := time.Now()
	items := make([]Item, len(jobs))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, job := range jobs {
		items[i].Job = job
		g.Go(func() error {
			req := progress.Request{JobID: job.ID.String(), Mode: progress.InitialLoad}
			if job.TotalRows != nil {
				total := *job.TotalRows
				req.KnownTotal = &total
			}
			res, err := l.poller.Refresh(ctx, req)
			if err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Progress = res.Progress
			items[i].Complete = res.Complete
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	l.logger.Info("jobs.overview.ok", "kind", l.kind.Name, "jobs", len(jobs), "failed", failed, "elapsed_ms", time.Since(start).Milliseconds())
	return items
}
