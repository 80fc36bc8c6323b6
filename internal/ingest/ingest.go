// Package ingest turns an uploaded spreadsheet into a previewable set of rows.
package ingest

// Column is one header cell: the title as written and the stable key rows are indexed by.
type Column struct {
	Title string `json:"title"`
	Key   string `json:"key"`
}

// Record maps column keys to cell values. Missing cells are "".
type Record map[string]string

// Preview is the parsed content of the first sheet of a workbook.
type Preview struct {
	Sheet   string   `json:"sheet"`
	Columns []Column `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Keys returns the column keys in sheet order.
func (p *Preview) Keys() []string {
	keys := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		keys[i] = c.Key
	}
	return keys
}
