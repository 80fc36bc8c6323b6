package constants

import (
	"encoding/json"
	"strings"
)

// JobStatus is the canonical status of an automation header.
type JobStatus string

// Stable values (store these exact strings in DB and on the wire).
const (
	JobStatusRunning  JobStatus = "RUNNING"  // rows still being processed
	JobStatusPaused   JobStatus = "PAUSED"   // processing suspended by a user
	JobStatusFinished JobStatus = "FINISHED" // every row processed
)

// DefaultPausedSentinel is the marker value the backend writes into rows of a paused job.
const DefaultPausedSentinel = "pausado"

var statusSynonyms = map[string]JobStatus{
	"running":    JobStatusRunning,
	"en proceso": JobStatusRunning,
	"en_proceso": JobStatusRunning,
	"procesando": JobStatusRunning,
	"paused":     JobStatusPaused,
	"pausado":    JobStatusPaused,
	"finished":   JobStatusFinished,
	"finalizado": JobStatusFinished,
	"terminado":  JobStatusFinished,
}

// ParseJobStatus maps wire values (including the legacy Spanish labels) to a JobStatus.
// Unknown values are returned upper-cased and report false.
func ParseJobStatus(raw string) (JobStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusSynonyms[normalized]; ok {
		return s, true
	}
	return JobStatus(strings.ToUpper(normalized)), false
}

// UnmarshalJSON accepts any of the labels ParseJobStatus understands.
func (s *JobStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s, _ = ParseJobStatus(raw)
	return nil
}
