package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nikhilgowda/feedpulse/internal/metrics"
	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// Analyzer produces a result for a job. Satisfied by analyzer.Service; it
// never fails, so worker-side retries only cover persistence.
type Analyzer interface {
	Analyze(ctx context.Context, job models.Job) *models.AnalysisResult
}

// ResultWriter persists finished analyses. Satisfied by store.Store.
type ResultWriter interface {
	UpsertResult(ctx context.Context, rec *models.StoredResult) error
}

const (
	reserveTimeout  = 2 * time.Second
	brokerBackoff   = time.Second
	shutdownTimeout = 5 * time.Second
)

// Worker consumes the queue: one job at a time per concurrency slot, each
// run through the analyzer and persisted before the job is acknowledged.
type Worker struct {
	queue       *Queue
	analyzer    Analyzer
	results     ResultWriter
	concurrency int
}

// NewWorker creates a Worker. Concurrency below 1 is bumped to 1.
func NewWorker(q *Queue, a Analyzer, rw ResultWriter, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{queue: q, analyzer: a, results: rw, concurrency: concurrency}
}

// Run consumes jobs until ctx is cancelled, then drains: jobs claimed but
// not finished go back to waiting so another worker can pick them up.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("queue worker starting", "concurrency", w.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.runSlot(ctx, slot)
		}(i)
	}
	wg.Wait()

	slog.Info("queue worker stopped")
}

func (w *Worker) runSlot(ctx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}

		status, err := w.queue.Reserve(ctx, reserveTimeout)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("reserving job failed", "slot", slot, "error", err)
			select {
			case <-time.After(brokerBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		w.process(ctx, status)
	}
}

func (w *Worker) process(ctx context.Context, status *JobStatus) {
	id := status.Job.ID

	if ctx.Err() != nil {
		w.release(id)
		return
	}

	result := w.analyzer.Analyze(ctx, status.Job)

	rec := &models.StoredResult{
		AnalysisResult: *result,
		UserID:         status.Job.UserID,
		Text:           status.Job.Text,
	}

	if err := w.results.UpsertResult(ctx, rec); err != nil {
		if ctx.Err() != nil {
			// Shutdown raced the write; hand the job back untouched.
			w.release(id)
			return
		}
		slog.Error("persisting result failed", "job_id", id,
			"attempt", status.Attempts, "error", err)
		if !w.queue.Policy().Exhausted(status.Attempts) {
			metrics.QueueRetries.Inc()
		}
		if ferr := w.queue.Fail(ctx, id, status.Attempts, err.Error()); ferr != nil {
			slog.Error("recording job failure failed", "job_id", id, "error", ferr)
		}
		return
	}

	if err := w.queue.Complete(ctx, id); err != nil {
		slog.Error("acknowledging job failed", "job_id", id, "error", err)
	}
}

// release requeues an interrupted job with a fresh context so shutdown
// bookkeeping still reaches the broker.
func (w *Worker) release(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := w.queue.Requeue(ctx, id); err != nil {
		slog.Warn("requeue on shutdown failed", "job_id", id, "error", err)
	}
}
