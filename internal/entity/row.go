package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	rowIDField    = "id"
	rowJobIDField = "id_encabezado"
)

// JobRow is one unit of work inside a job ("detalle"). Fields holds the domain payload and the
// completion markers, flattened to strings.
type JobRow struct {
	ID     ID
	JobID  ID
	Fields map[string]string
}

// Get returns a field value, "" when absent.
func (r JobRow) Get(field string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[field]
}

// Set writes a field value, allocating the map when needed.
func (r *JobRow) Set(field, value string) {
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	r.Fields[field] = value
}

func (r *JobRow) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("row: %w", err)
	}
	r.Fields = make(map[string]string, len(raw))
	r.ID, r.JobID = "", ""
	for k, v := range raw {
		switch k {
		case rowIDField:
			r.ID = ID(Stringify(v))
		case rowJobIDField:
			r.JobID = ID(Stringify(v))
		default:
			r.Fields[k] = Stringify(v)
		}
	}
	return nil
}

func (r JobRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.ID != "" {
		out[rowIDField] = r.ID
	}
	if r.JobID != "" {
		out[rowJobIDField] = r.JobID
	}
	return json.Marshal(out)
}

// Stringify renders a decoded JSON value as the string a spreadsheet cell would show.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
