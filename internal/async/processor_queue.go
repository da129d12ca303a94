package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// BatchProcessor is the part of pipeline.Processor the queue needs.
type BatchProcessor interface {
	ProcessPaths(ctx context.Context, paths []string, opts pipeline.RunOptions) (*pipeline.Outcome, error)
}

type ProcessorQueue struct {
	proc    BatchProcessor
	opts    pipeline.RunOptions
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

// WithWorkers sets how many batches run at once.
func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets the channel capacity; Enqueue blocks when it is full.
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds each batch run.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRunOptions sets the options every queued batch runs with.
func WithRunOptions(o pipeline.RunOptions) Option {
	return func(q *ProcessorQueue) { q.opts = o }
}

func NewProcessorQueue(proc BatchProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx := common.WithRequestID(context.Background(), job.TraceID)
					ctx, cancel := context.WithTimeout(ctx, q.timeout)
					out, err := q.proc.ProcessPaths(ctx, job.Paths, q.opts)
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "trace_id", job.TraceID, "paths", job.Paths, "error", err)
						continue
					}
					q.logger.Info("processed batch successfully",
						"worker_id", workerID,
						"trace_id", job.TraceID,
						"batch_id", out.Batch.ID,
						"status", out.Batch.Status,
						"packages", out.Batch.Summary.Total,
						"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
					)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "paths", job.Paths)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued files for processing", "paths", job.Paths, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "paths", job.Paths)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
