package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProcessorQueue feeds jobs to a fixed pool of workers. A job id that is already queued is not
// queued a second time. A job enqueued while a worker runs it is run again by that worker once
// the current pass ends, so a resume that races a stopping pass is not lost.
type ProcessorQueue struct {
	runner  *Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu       sync.Mutex
	closed   bool
	inflight map[string]jobState

	// sendMu keeps Shutdown from closing ch under a blocked send.
	sendMu sync.RWMutex
}

var _ Queue = (*ProcessorQueue)(nil)

type jobState int

const (
	stateQueued jobState = iota + 1
	stateRunning
	stateRerun
)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(runner *Runner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:   runner,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
		inflight: map[string]jobState{},
	}
	for _, o := range opts {
		o(q)
	}
	q.once.Do(func() {
		for i := 1; i <= q.workers; i++ {
			q.wg.Add(1)
			go q.work(i)
		}
	})
	return q
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Info("async.worker.started", "worker_id", workerID)

	for job := range q.ch {
		q.setState(job.JobID, stateRunning)
		for {
			q.runOnce(workerID, job)
			if !q.release(job.JobID) {
				break
			}
			q.logger.Info("async.job.rerun", "worker_id", workerID, "job_id", job.JobID)
		}
	}

	q.logger.Info("async.worker.stopped", "worker_id", workerID)
}

func (q *ProcessorQueue) runOnce(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	res, err := q.runner.Run(ctx, job.JobID)
	if err != nil {
		q.logger.Error("async.job.failed", "worker_id", workerID, "job_id", job.JobID, "trace_id", job.TraceID, "error", err)
		return
	}
	q.logger.Info("async.job.done",
		"worker_id", workerID,
		"job_id", job.JobID,
		"rows", res.Processed,
		"stopped", res.Stopped,
		"finished", res.Finished,
		"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
}

func (q *ProcessorQueue) setState(jobID string, st jobState) {
	q.mu.Lock()
	q.inflight[jobID] = st
	q.mu.Unlock()
}

// release ends a pass. It reports true, keeping the job in flight, when an enqueue arrived
// during the pass.
func (q *ProcessorQueue) release(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight[jobID] == stateRerun {
		q.inflight[jobID] = stateRunning
		return true
	}
	delete(q.inflight, jobID)
	return false
}

// Enqueue blocks when the buffer is full. It never fails; a closed queue drops the job with a
// warning.
func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("async.enqueue.closed", "job_id", job.JobID)
		return nil
	}
	switch q.inflight[job.JobID] {
	case stateQueued, stateRerun:
		q.mu.Unlock()
		q.logger.Debug("async.enqueue.duplicate", "job_id", job.JobID)
		return nil
	case stateRunning:
		q.inflight[job.JobID] = stateRerun
		q.mu.Unlock()
		q.logger.Info("async.enqueue.rerun_requested", "job_id", job.JobID)
		return nil
	}
	q.inflight[job.JobID] = stateQueued
	q.mu.Unlock()

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		q.release(job.JobID)
		q.logger.Warn("async.enqueue.closed", "job_id", job.JobID)
		return nil
	}

	select {
	case q.ch <- job:
		q.logger.Info("async.enqueue.ok", "job_id", job.JobID)
	default:
		q.logger.Warn("async.enqueue.backpressure", "job_id", job.JobID)
		q.ch <- job
	}
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
