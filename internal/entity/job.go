package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/automations/constants"
)

// ID identifies a job or a row. The gateway sends ids as JSON strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp tolerates the formats the gateway has used for upload dates.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || strings.TrimSpace(s) == "" {
		// null, numbers and blanks leave the zero time
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// unknown layouts are not worth failing a whole listing over
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Job is an automation header ("encabezado").
type Job struct {
	ID         ID        `json:"id"`
	Kind       string    `json:"tipo,omitempty"`
	Label      string    `json:"nombre"`
	UploadedBy string    `json:"usuario"`
	UploadedAt Timestamp `json:"fecha_cargue"`
	// TotalRows is nil when the header does not carry total_registros. A present 0 is a real
	// total of zero.
	TotalRows *int                `json:"total_registros,omitempty"`
	Status    constants.JobStatus `json:"estado"`
}

// RowCount returns the header's total, or 0 when it is absent.
func (j Job) RowCount() int {
	if j.TotalRows == nil {
		return 0
	}
	return *j.TotalRows
}
