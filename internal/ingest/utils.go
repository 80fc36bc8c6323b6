package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// buildColumns derives stable keys from header cells: the trimmed title, the column letter for
// blank titles, and a numeric suffix for repeats.
func buildColumns(header []string) []Column {
	columns := make([]Column, 0, len(header))
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		title := strings.TrimSpace(raw)
		key := title
		if key == "" {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				name = fmt.Sprintf("column_%d", i+1)
			}
			key = name
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}
		columns = append(columns, Column{Title: title, Key: key})
	}
	return columns
}
