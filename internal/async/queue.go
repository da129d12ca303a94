// Package async runs pipeline batches on a fixed pool of workers.
package async

import (
	"context"
	"time"
)

// Job is one batch of local files to process together.
type Job struct {
	Paths       []string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
