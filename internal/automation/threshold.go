package automation

import "github.com/joseph-ayodele/automations/internal/entity"

// Threshold decides when a job counts as complete. The two strategies disagree when rounding
// lifts a nearly finished job to 100%, so each kind picks one explicitly.
type Threshold interface {
	Name() string
	Complete(p entity.Progress) bool
}

// RoundedThreshold treats a rounded percentage of 100 as complete.
type RoundedThreshold struct{}

func (RoundedThreshold) Name() string { return "rounded" }

func (RoundedThreshold) Complete(p entity.Progress) bool {
	return p.Percentage == 100
}

// ExactMatchThreshold requires every row to be processed.
type ExactMatchThreshold struct{}

func (ExactMatchThreshold) Name() string { return "exact" }

func (ExactMatchThreshold) Complete(p entity.Progress) bool {
	return p.Total > 0 && p.Processed == p.Total
}
