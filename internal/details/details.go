// Package details pages through a job's processed rows. It asks the gateway for a server-side
// page first and falls back to paging the full row listing locally when that page is unusable.
package details

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
	"github.com/joseph-ayodele/automations/internal/progress"
)

// Source says which path produced a page.
type Source string

const (
	SourceServer   Source = "server"
	SourceFallback Source = "fallback"
)

// Query selects one page of a job's rows.
type Query struct {
	JobID    string
	Page     int
	PageSize int
	Filter   string
}

// Row is a detail row with a key that stays the same across pages.
type Row struct {
	Key string
	entity.JobRow
}

// Page is the answer to a Query.
type Page struct {
	Rows     []Row
	Total    int
	Page     int
	PageSize int
	Source   Source
}

// Browser runs detail queries for one kind.
type Browser struct {
	gw     *gateway.Client
	kind   automation.Kind
	logger *slog.Logger
}

func NewBrowser(gw *gateway.Client, kind automation.Kind, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{gw: gw, kind: kind, logger: logger}
}

// Query returns one page. A server page that is a bad status, undecodable, or not page-shaped
// sends the query down the local path; a transport failure does not and is returned as ErrQuery.
func (b *Browser) Query(ctx context.Context, q Query) (Page, error) {
	q = b.normalize(q)

	res := b.serverPage(ctx, q)
	switch res.outcome {
	case outcomeOK:
		b.logger.Info("details.query.ok", "job_id", q.JobID, "source", SourceServer, "page", q.Page, "rows", len(res.page.Rows), "total", res.page.Total)
		return res.page, nil
	case outcomeTransportError:
		b.logger.Warn("details.query.transport_error", "job_id", q.JobID, "error", res.err)
		return Page{}, common.NewAppError(common.CodeQuery, "detail page for job "+q.JobID, res.err)
	}

	b.logger.Info("details.query.fallback", "job_id", q.JobID, "reason", res.err)
	page, err := b.fallbackPage(ctx, q)
	if err != nil {
		b.logger.Warn("details.query.fallback_failed", "job_id", q.JobID, "error", err)
		return Page{}, err
	}
	b.logger.Info("details.query.ok", "job_id", q.JobID, "source", SourceFallback, "page", q.Page, "rows", len(page.Rows), "total", page.Total)
	return page, nil
}

func (b *Browser) normalize(q Query) Query {
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize = b.kind.PageSize(q.PageSize)
	q.Filter = strings.TrimSpace(q.Filter)
	return q
}

func offset(q Query) int { return (q.Page - 1) * q.PageSize }

type outcome int

const (
	outcomeOK outcome = iota
	outcomeMalformed
	outcomeTransportError
)

type serverResult struct {
	outcome outcome
	page    Page
	err     error
}

var errNotPageShaped = errors.New("response is not a detail page")

func (b *Browser) serverPage(ctx context.Context, q Query) serverResult {
	params := url.Values{}
	params.Set(automation.ParamOffset, strconv.Itoa(offset(q)))
	params.Set(automation.ParamLimit, strconv.Itoa(q.PageSize))
	if q.Filter != "" && b.kind.FilterParam != "" {
		params.Set(b.kind.FilterParam, q.Filter)
	}

	resp := b.gw.Get(ctx, automation.WithID(b.kind.Endpoints.PageRows, q.JobID), params)
	switch resp.Outcome {
	case gateway.OutcomeTransportError:
		return serverResult{outcome: outcomeTransportError, err: resp.Err}
	case gateway.OutcomeBadStatus:
		return serverResult{outcome: outcomeMalformed, err: resp.AsError()}
	}

	if err := pageSchema.Validate(resp.Body); err != nil {
		return serverResult{outcome: outcomeMalformed, err: err}
	}
	var set entity.RowSet
	if err := resp.DecodeJSON(&set); err != nil {
		return serverResult{outcome: outcomeMalformed, err: err}
	}
	if set.Total == nil {
		return serverResult{outcome: outcomeMalformed, err: errNotPageShaped}
	}

	return serverResult{outcome: outcomeOK, page: Page{
		Rows:     b.keyed(set.Rows, offset(q)),
		Total:    *set.Total,
		Page:     q.Page,
		PageSize: q.PageSize,
		Source:   SourceServer,
	}}
}

func (b *Browser) fallbackPage(ctx context.Context, q Query) (Page, error) {
	set, err := progress.FetchRows(ctx, b.gw, b.kind, q.JobID)
	if err != nil {
		return Page{}, err
	}
	matched := Filter(b.kind, set.Rows, q.Filter)
	keyed := b.keyed(matched, 0)

	start := offset(q)
	end := start + q.PageSize
	if start > len(keyed) {
		start = len(keyed)
	}
	if end > len(keyed) {
		end = len(keyed)
	}
	return Page{
		Rows:     keyed[start:end],
		Total:    len(keyed),
		Page:     q.Page,
		PageSize: q.PageSize,
		Source:   SourceFallback,
	}, nil
}

// Filter keeps processed rows whose business key contains term. An empty term keeps every
// processed row.
func Filter(kind automation.Kind, rows []entity.JobRow, term string) []entity.JobRow {
	term = strings.TrimSpace(term)
	if !kind.CaseSensitiveFilter {
		term = strings.ToLower(term)
	}
	out := make([]entity.JobRow, 0, len(rows))
	for _, r := range rows {
		if !kind.IsProcessed(r) {
			continue
		}
		if term != "" {
			v := r.Get(kind.BusinessKey)
			if !kind.CaseSensitiveFilter {
				v = strings.ToLower(v)
			}
			if !strings.Contains(v, term) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// RowKey is the row id when present, otherwise "<index>-<business key>".
func RowKey(kind automation.Kind, index int, r entity.JobRow) string {
	if id := r.ID.String(); id != "" {
		return id
	}
	return fmt.Sprintf("%d-%s", index, r.Get(kind.BusinessKey))
}

func (b *Browser) keyed(rows []entity.JobRow, base int) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Key: RowKey(b.kind, base+i, r), JobRow: r}
	}
	return out
}

// JobRows strips the keys.
func (p Page) JobRows() []entity.JobRow {
	out := make([]entity.JobRow, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.JobRow
	}
	return out
}
