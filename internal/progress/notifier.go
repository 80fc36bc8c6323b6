package progress

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

// Notification is the outcome of a completion notification attempt.
type Notification struct {
	Attempted bool
	Delivered bool
	Message   string
	// Warning is set (errors.Is ErrNotification) when the notifier did not confirm delivery.
	Warning error
}

// Notifier tells a downstream recipient that a job reached completion.
type Notifier interface {
	NotifyCompletion(ctx context.Context, jobID string) Notification
}

// GatewayNotifier posts to the kind's notify endpoint.
type GatewayNotifier struct {
	gw     *gateway.Client
	kind   automation.Kind
	logger *slog.Logger
}

func NewGatewayNotifier(gw *gateway.Client, kind automation.Kind, logger *slog.Logger) *GatewayNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &GatewayNotifier{gw: gw, kind: kind, logger: logger}
}

type notifyRequest struct {
	JobID string `json:"idEncabezado"`
}

type notifyResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
}

// NotifyCompletion reads the body's success flag whatever the HTTP status is. Anything short of
// success:true is a soft warning, never an error.
func (n *GatewayNotifier) NotifyCompletion(ctx context.Context, jobID string) Notification {
	out := Notification{Attempted: true}
	resp := n.gw.PostJSON(ctx, n.kind.Endpoints.Notify, notifyRequest{JobID: jobID})
	if resp.Outcome == gateway.OutcomeTransportError {
		out.Warning = common.NewAppError(common.CodeNotification, "notifier unreachable", resp.Err)
		n.logger.Warn("progress.notify.unreachable", "job_id", jobID, "error", resp.Err)
		return out
	}

	var body notifyResponse
	if err := resp.DecodeJSON(&body); err != nil {
		out.Warning = common.NewAppError(common.CodeNotification, "unknown server response", resp.AsError())
		n.logger.Warn("progress.notify.unknown_response", "job_id", jobID, "status", resp.Status)
		return out
	}
	out.Message = strings.TrimSpace(body.Message)
	if out.Message == "" {
		out.Message = strings.TrimSpace(body.Mensaje)
	}
	if body.Success == nil || !*body.Success {
		msg := out.Message
		if msg == "" {
			msg = "notifier reported failure"
		}
		out.Warning = common.NewAppError(common.CodeNotification, msg, nil)
		n.logger.Warn("progress.notify.not_confirmed", "job_id", jobID, "status", resp.Status, "message", out.Message)
		return out
	}

	out.Delivered = true
	n.logger.Info("progress.notify.ok", "job_id", jobID)
	return out
}
