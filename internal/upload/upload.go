// Package upload submits a spreadsheet to a kind's job-creation endpoint.
package upload

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
	"github.com/joseph-ayodele/automations/internal/ingest"
)

const unknownResponse = "unknown server response"

// File is an in-memory upload.
type File struct {
	Name string
	Data []byte
}

// Client creates jobs from spreadsheets.
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

type createResponse struct {
	ID           entity.ID `json:"id"`
	IDEncabezado entity.ID `json:"idEncabezado"`
	IDUnderscore entity.ID `json:"id_encabezado"`
}

type errorBody struct {
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
	Error   string `json:"error"`
}

// Submit validates the file locally and posts it. The returned job id is empty when the server
// accepted the file without saying which job it created.
func (c *Client) Submit(ctx context.Context, f File, userID string) (string, error) {
	preview, err := ingest.ParseBytes(f.Data)
	if err != nil {
		c.logger.Warn("upload.parse_failed", "file", f.Name, "error", err)
		return "", err
	}
	if userID == "" {
		userID = common.UserIDFromContext(ctx)
	}

	resp := c.gw.PostMultipart(ctx, c.kind.Endpoints.Create,
		map[string]string{automation.ParamUser: userID},
		automation.ParamFile, f.Name, f.Data)

	switch resp.Outcome {
	case gateway.OutcomeTransportError:
		c.logger.Warn("upload.transport_error", "file", f.Name, "error", resp.Err)
		return "", common.NewAppError(common.CodeUpload, "gateway unreachable", resp.Err)
	case gateway.OutcomeBadStatus:
		msg := failureMessage(resp.Body)
		c.logger.Warn("upload.rejected", "file", f.Name, "status", resp.Status, "message", msg)
		return "", common.NewAppError(common.CodeUpload, msg, resp.AsError())
	}

	var body createResponse
	if err := resp.DecodeJSON(&body); err != nil {
		c.logger.Info("upload.ok", "file", f.Name, "rows", len(preview.Rows), "job_id", "")
		return "", nil
	}
	id := firstNonEmpty(body.ID.String(), body.IDEncabezado.String(), body.IDUnderscore.String())
	c.logger.Info("upload.ok", "file", f.Name, "rows", len(preview.Rows), "job_id", id)
	return id, nil
}

func failureMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return unknownResponse
	}
	if msg := firstNonEmpty(body.Message, body.Mensaje, body.Error); msg != "" {
		return msg
	}
	return unknownResponse
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
