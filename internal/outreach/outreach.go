// Package outreach is the adapter to the third-party dialing/campaign provider. The API key
// header and the base URL are its whole integration surface.
package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

const (
	DefaultKeyHeader = "X-Api-Key"

	pathCampaigns   = "/campaigns"
	pathTouchpoints = "/campaigns/{id}/touchpoints"
	pathSequences   = "/sequences"
)

// Campaign is an outreach campaign.
type Campaign struct {
	ID     entity.ID `json:"id"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
}

// Touchpoint is one contact attempt of a campaign.
type Touchpoint struct {
	ID         entity.ID        `json:"id"`
	CampaignID entity.ID        `json:"campaign_id"`
	Channel    string           `json:"channel"`
	Phone      string           `json:"phone"`
	Status     string           `json:"status"`
	At         entity.Timestamp `json:"at"`
}

// SequenceRequest enrolls one contact into a campaign.
type SequenceRequest struct {
	CampaignID string `json:"campaign_id" validate:"required"`
	Phone      string `json:"phone" validate:"required,min=7"`
	Name       string `json:"name,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Sequence is the provider's answer to an enrollment.
type Sequence struct {
	ID     entity.ID `json:"id"`
	Status string    `json:"status"`
}

// Provider is everything the rest of the module may ask of the outreach provider.
type Provider interface {
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	GetTouchpoints(ctx context.Context, campaignID string) ([]Touchpoint, error)
	CreateSequence(ctx context.Context, req SequenceRequest) (Sequence, error)
}

// Client implements Provider over HTTP.
type Client struct {
	gw     *gateway.Client
	logger *slog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient builds a client for cfg. keyHeader defaults to X-Api-Key.
func NewClient(cfg common.OutreachConfig, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	header := cfg.KeyHeader
	if header == "" {
		header = DefaultKeyHeader
	}
	gw := gateway.NewClient(cfg.BaseURL, logger,
		gateway.WithName("outreach"),
		gateway.WithTimeout(timeout),
		gateway.WithHeader(header, cfg.APIKey),
	)
	return &Client{gw: gw, logger: logger}
}

func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var out []Campaign
	if err := c.getList(ctx, pathCampaigns, nil, &out); err != nil {
		return nil, err
	}
	c.logger.Info("outreach.campaigns.ok", "count", len(out))
	return out, nil
}

func (c *Client) GetTouchpoints(ctx context.Context, campaignID string) ([]Touchpoint, error) {
	if campaignID == "" {
		return nil, common.NewAppError(common.CodeOutreach, "campaign id is required", common.ErrInvalidInput)
	}
	var out []Touchpoint
	path := strings.ReplaceAll(pathTouchpoints, "{id}", url.PathEscape(campaignID))
	if err := c.getList(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	c.logger.Info("outreach.touchpoints.ok", "campaign_id", campaignID, "count", len(out))
	return out, nil
}

func (c *Client) CreateSequence(ctx context.Context, req SequenceRequest) (Sequence, error) {
	if err := common.ValidateRequest(req); err != nil {
		return Sequence{}, common.NewAppError(common.CodeOutreach, "invalid sequence request", err)
	}
	resp := c.gw.PostJSON(ctx, pathSequences, req)
	if resp.Outcome != gateway.OutcomeOK {
		c.logger.Warn("outreach.sequence.failed", "campaign_id", req.CampaignID, "outcome", resp.Outcome.String(), "status", resp.Status)
		return Sequence{}, common.NewAppError(common.CodeOutreach, "create sequence", resp.AsError())
	}
	var seq Sequence
	if err := unwrapData(resp.Body, &seq); err != nil {
		return Sequence{}, common.NewAppError(common.CodeOutreach, "malformed sequence response", err)
	}
	c.logger.Info("outreach.sequence.ok", "campaign_id", req.CampaignID, "sequence_id", seq.ID.String())
	return seq, nil
}

func (c *Client) getList(ctx context.Context, path string, q url.Values, v any) error {
	resp := c.gw.Get(ctx, path, q)
	if resp.Outcome != gateway.OutcomeOK {
		c.logger.Warn("outreach.request.failed", "path", path, "outcome", resp.Outcome.String(), "status", resp.Status)
		return common.NewAppError(common.CodeOutreach, "GET "+path, resp.AsError())
	}
	if err := unwrapData(resp.Body, v); err != nil {
		return common.NewAppError(common.CodeOutreach, "malformed response from "+path, err)
	}
	return nil
}

// unwrapData decodes either the payload itself or {"data": payload}.
func unwrapData(body []byte, v any) error {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
			body = env.Data
		}
	}
	return json.Unmarshal(body, v)
}
