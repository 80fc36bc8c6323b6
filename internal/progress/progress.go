// Package progress computes how far an automation job has come and fires the completion
// notification when a full refresh observes a finished job.
package progress

import (
	"math"

	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/entity"
)

// Compute counts processed rows and derives the percentage. total, when non-nil, is the
// authoritative row count; otherwise the number of fetched rows is used, which reads 100% early
// if the backend has not registered every row yet.
func Compute(kind automation.Kind, rows []entity.JobRow, total *int) entity.Progress {
	processed := 0
	for _, r := range rows {
		if kind.IsProcessed(r) {
			processed++
		}
	}

	t := len(rows)
	if total != nil {
		t = *total
	}
	if t < 0 {
		t = 0
	}
	if processed > t {
		processed = t
	}

	return entity.Progress{
		Processed:  processed,
		Total:      t,
		Percentage: Percentage(processed, t),
	}
}

// Percentage is round(100*processed/total) clamped to [0,100]; 0 when total is 0.
func Percentage(processed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(processed) / float64(total)))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
