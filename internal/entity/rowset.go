package entity

import (
	"bytes"
	"encoding/json"
	"errors"
)

// RowSet is a list of rows plus the total the server reported, if any. It decodes every shape
// the gateway uses for row listings: a bare array, {"detalles": [...], "totalRegistros": n}
// and {"rows": [...], "total": n}.
type RowSet struct {
	Rows  []JobRow
	Total *int
}

type rowSetObject struct {
	Detalles       *[]JobRow `json:"detalles"`
	Rows           *[]JobRow `json:"rows"`
	TotalRegistros *int      `json:"totalRegistros"`
	Total          *int      `json:"total"`
}

var errNoRows = errors.New("row listing has neither detalles nor rows")

func (s *RowSet) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		s.Total = nil
		return json.Unmarshal(b, &s.Rows)
	}
	var obj rowSetObject
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	switch {
	case obj.Detalles != nil:
		s.Rows = *obj.Detalles
	case obj.Rows != nil:
		s.Rows = *obj.Rows
	default:
		return errNoRows
	}
	s.Total = obj.TotalRegistros
	if s.Total == nil {
		s.Total = obj.Total
	}
	return nil
}

// MarshalJSON writes the "detalles" shape.
func (s RowSet) MarshalJSON() ([]byte, error) {
	rows := s.Rows
	if rows == nil {
		rows = []JobRow{}
	}
	return json.Marshal(struct {
		Detalles       []JobRow `json:"detalles"`
		TotalRegistros *int     `json:"totalRegistros,omitempty"`
	}{rows, s.Total})
}
