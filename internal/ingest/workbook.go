package ingest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/common"
)

// Parse reads the first sheet of a workbook. The first row is the header; every later
// non-blank row becomes a Record. Values are passed through as excelize formats them.
func Parse(r io.Reader) (*Preview, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, parseError("not a readable workbook", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Default().Warn("ingest.workbook.close_error", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseError("workbook has no sheets", nil)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, parseError(fmt.Sprintf("read sheet %q", sheet), err)
	}
	if len(rows) == 0 {
		return nil, parseError(fmt.Sprintf("sheet %q has no rows", sheet), nil)
	}

	if isBlank(rows[0]) {
		return nil, parseError(fmt.Sprintf("sheet %q has an empty header row", sheet), nil)
	}
	columns := buildColumns(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		rec := make(Record, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				rec[col.Key] = cells[i]
			} else {
				rec[col.Key] = ""
			}
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, parseError(fmt.Sprintf("sheet %q has a header but no data rows", sheet), nil)
	}

	return &Preview{Sheet: sheet, Columns: columns, Rows: records}, nil
}

// ParseBytes parses an in-memory workbook.
func ParseBytes(data []byte) (*Preview, error) {
	if len(data) == 0 {
		return nil, parseError("empty file", nil)
	}
	return Parse(bytes.NewReader(data))
}

// ParseFile checks the extension and parses a workbook on disk.
func ParseFile(path string) (*Preview, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.AllowedExt(ext) {
		return nil, parseError(fmt.Sprintf("unsupported or missing extension %q", ext), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, parseError("read file", err)
	}
	return ParseBytes(data)
}

func parseError(msg string, cause error) error {
	return common.NewAppError(common.CodeParse, msg, cause)
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
