package progress

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

// Mode distinguishes a view's first load from an explicit user refresh. Only a full refresh
// may notify.
type Mode int

const (
	InitialLoad Mode = iota
	FullRefresh
)

// Request describes one refresh.
type Request struct {
	JobID string
	Mode  Mode
	// KnownTotal is the header's row count when the caller already has it.
	KnownTotal *int
}

// Result is a job's progress after a refresh.
type Result struct {
	JobID string
	entity.Progress
	Complete     bool
	Notification Notification
}

// Poller recomputes job progress on demand. It schedules nothing by itself.
type Poller struct {
	gw       *gateway.Client
	kind     automation.Kind
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Poller)

// WithNotifier replaces the gateway notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Poller) {
		if n != nil {
			p.notifier = n
		}
	}
}

func NewPoller(gw *gateway.Client, kind automation.Kind, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{gw: gw, kind: kind, logger: logger}
	for _, o := range opts {
		o(p)
	}
	if p.notifier == nil {
		p.notifier = NewGatewayNotifier(gw, kind, logger)
	}
	return p
}

// Refresh fetches the job's rows, computes its progress and, on a full refresh of a complete
// job, calls the notifier exactly once.
func (p *Poller) Refresh(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	set, err := FetchRows(ctx, p.gw, p.kind, req.JobID)
	if err != nil {
		p.logger.Warn("progress.refresh.failed", "job_id", req.JobID, "error", err)
		return Result{JobID: req.JobID}, err
	}

	total := req.KnownTotal
	if total == nil {
		total = set.Total
	}
	res := Result{
		JobID:    req.JobID,
		Progress: Compute(p.kind, set.Rows, total),
	}
	res.Complete = p.kind.Complete(res.Progress)

	if req.Mode == FullRefresh && res.Complete {
		res.Notification = p.notifier.NotifyCompletion(ctx, req.JobID)
	}

	p.logger.Info("progress.refresh.ok",
		"job_id", req.JobID,
		"kind", p.kind.Name,
		"processed", res.Processed,
		"total", res.Total,
		"percentage", res.Percentage,
		"complete", res.Complete,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// FetchRows reads every row of a job from the kind's non-paginated listing.
func FetchRows(ctx context.Context, gw *gateway.Client, kind automation.Kind, jobID string) (entity.RowSet, error) {
	q := url.Values{}
	q.Set(automation.ParamJobID, jobID)
	resp := gw.Get(ctx, kind.Endpoints.ListRows, q)
	if resp.Outcome != gateway.OutcomeOK {
		return entity.RowSet{}, common.NewAppError(common.CodeQuery, "list rows for job "+jobID, resp.AsError())
	}
	var set entity.RowSet
	if err := resp.DecodeJSON(&set); err != nil {
		return entity.RowSet{}, common.NewAppError(common.CodeQuery, "malformed row listing for job "+jobID, err)
	}
	return set, nil
}
