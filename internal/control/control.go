// Package control pauses and resumes jobs.
package control

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

// Command is a control verb.
type Command string

const (
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
)

// Ack is whatever the gateway answered. Its content is informational only.
type Ack struct {
	JobID   string
	Command Command
	Status  int
	Body    []byte
}

// Client issues control commands. It keeps no job state of its own.
type Client struct {
	gw     *gateway.Client
	kind   automation.Kind
	logger *slog.Logger
}

func NewClient(gw *gateway.Client, kind automation.Kind, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{gw: gw, kind: kind, logger: logger}
}

// Pause asks the gateway to stop processing a job. Repeating it is not an error.
func (c *Client) Pause(ctx context.Context, jobID string) (Ack, error) {
	return c.send(ctx, CommandPause, c.kind.Endpoints.Pause, jobID)
}

// Resume asks the gateway to continue a paused job. Repeating it is not an error.
func (c *Client) Resume(ctx context.Context, jobID string) (Ack, error) {
	return c.send(ctx, CommandResume, c.kind.Endpoints.Resume, jobID)
}

func (c *Client) send(ctx context.Context, cmd Command, template, jobID string) (Ack, error) {
	ack := Ack{JobID: jobID, Command: cmd}
	resp := c.gw.Post(ctx, automation.WithID(template, jobID))
	if resp.Outcome == gateway.OutcomeTransportError {
		c.logger.Warn("control.transport_error", "command", cmd, "job_id", jobID, "error", resp.Err)
		return ack, common.NewAppError(common.CodeControl, string(cmd)+" job "+jobID, resp.Err)
	}
	ack.Status = resp.Status
	ack.Body = resp.Body
	if resp.Outcome == gateway.OutcomeBadStatus {
		c.logger.Warn("control.ack_bad_status", "command", cmd, "job_id", jobID, "status", resp.Status)
	} else {
		c.logger.Info("control.ack", "command", cmd, "job_id", jobID, "status", resp.Status)
	}
	return ack, nil
}

// Tracker remembers the last job the user paused, for immediate feedback before the next
// listing arrives. The listing always wins.
type Tracker struct {
	mu         sync.Mutex
	lastPaused string
}

// MarkPaused records a pause the user just issued.
func (t *Tracker) MarkPaused(jobID string) {
	t.mu.Lock()
	t.lastPaused = jobID
	t.mu.Unlock()
}

// MarkResumed clears the flag when it refers to jobID.
func (t *Tracker) MarkResumed(jobID string) {
	t.mu.Lock()
	if t.lastPaused == jobID {
		t.lastPaused = ""
	}
	t.mu.Unlock()
}

// LastPaused returns the optimistic flag, "" when none.
func (t *Tracker) LastPaused() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPaused
}

// IsPaused answers for a job using the fetched status unless the optimistic flag says otherwise.
func (t *Tracker) IsPaused(job entity.Job) bool {
	return job.Status == constants.JobStatusPaused || t.LastPaused() == job.ID.String()
}

// Reconcile drops the flag once a fetched listing shows the job, whatever its status.
func (t *Tracker) Reconcile(jobs []entity.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastPaused == "" {
		return
	}
	for _, j := range jobs {
		if j.ID.String() == t.lastPaused {
			t.lastPaused = ""
			return
		}
	}
}
