// Package export produces result workbooks: the gateway's own export, or a local workbook built
// from detail rows.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/common"
	"github.com/joseph-ayodele/automations/internal/entity"
	"github.com/joseph-ayodele/automations/internal/gateway"
)

const (
	minColWidth = 10
	maxColWidth = 60
)

// Service builds XLSX workbooks from detail rows.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// RowsXLSX writes one sheet named after the kind's domain: an "ID" column, the kind's detail
// columns in order, then any other field found in the rows, sorted by name.
func (s *Service) RowsXLSX(kind automation.Kind, rows []entity.JobRow) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	sheet := kind.Domain
	if sheet == "" {
		sheet = "Resultados"
	}
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}
	}
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	columns := exportColumns(kind, rows)
	widths := make([]int, len(columns)+1)

	header := make([]any, 0, len(columns)+1)
	header = append(header, "ID")
	widths[0] = utf8.RuneCountInString("ID")
	for i, c := range columns {
		header = append(header, c.Title)
		widths[i+1] = utf8.RuneCountInString(c.Title)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r, row := range rows {
		values := make([]any, 0, len(columns)+1)
		values = append(values, row.ID.String())
		widths[0] = max(widths[0], utf8.RuneCountInString(row.ID.String()))
		for i, c := range columns {
			v := row.Get(c.Key)
			values = append(values, v)
			widths[i+1] = max(widths[i+1], utf8.RuneCountInString(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetColWidth(sheet, name, name, float64(min(max(w+2, minColWidth), maxColWidth)))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"kind", kind.Name,
		"rows", len(rows),
		"columns", len(columns)+1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func exportColumns(kind automation.Kind, rows []entity.JobRow) []automation.Column {
	cols := append([]automation.Column(nil), kind.Columns...)
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c.Key] = true
	}
	var extra []string
	for _, r := range rows {
		for k := range r.Fields {
			if !known[k] {
				known[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		cols = append(cols, automation.Column{Key: k, Title: k})
	}
	return cols
}

// Downloader fetches the gateway's export of a job.
type Downloader struct {
	gw     *gateway.Client
	kind   automation.Kind
	logger *slog.Logger
}

func NewDownloader(gw *gateway.Client, kind automation.Kind, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{gw: gw, kind: kind, logger: logger}
}

// Download returns the workbook bytes as served.
func (d *Downloader) Download(ctx context.Context, jobID string) ([]byte, error) {
	q := url.Values{}
	q.Set(automation.ParamJobID, jobID)
	resp := d.gw.Get(ctx, d.kind.Endpoints.Export, q)
	if resp.Outcome != gateway.OutcomeOK {
		d.logger.Warn("export.download.failed", "job_id", jobID, "outcome", resp.Outcome.String(), "status", resp.Status)
		return nil, common.NewAppError(common.CodeQuery, "export job "+jobID, resp.AsError())
	}
	if len(resp.Body) == 0 {
		return nil, common.NewAppError(common.CodeQuery, "export job "+jobID+" returned an empty file", nil)
	}
	d.logger.Info("export.download.ok", "job_id", jobID, "bytes", len(resp.Body))
	return resp.Body, nil
}
