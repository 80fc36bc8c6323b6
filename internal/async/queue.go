package async

import (
	"context"
	"time"
)

// Job asks the workers to process the pending rows of one automation job.
type Job struct {
	JobID       string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
