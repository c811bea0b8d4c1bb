package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nikhilgowda/feedpulse/internal/metrics"
	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// Health statuses.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Health is a degradable snapshot of broker reachability and queue depth.
// Disconnected carries no counts and is a value, never an error.
type Health struct {
	Status string       `json:"status"`
	Counts *StateCounts `json:"counts,omitempty"`
}

const probeTimeout = 2 * time.Second

// HealthReporter caches broker reachability so a dead broker costs one cheap
// ping per check instead of a full count query. Shared, read-mostly state;
// safe for concurrent use.
type HealthReporter struct {
	queue     *Queue
	connected atomic.Bool
}

// NewHealthReporter creates a reporter that starts optimistic; the first
// failed probe flips it to disconnected.
func NewHealthReporter(q *Queue) *HealthReporter {
	r := &HealthReporter{queue: q}
	r.connected.Store(true)
	return r
}

// Report returns the current queue health. Never returns an error: broker
// unreachability is reported as a disconnected status.
func (r *HealthReporter) Report(ctx context.Context) Health {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if !r.connected.Load() {
		// Known-dead broker: one cheap ping decides whether to recover.
		if err := r.queue.Ping(probeCtx); err != nil {
			return Health{Status: StatusDisconnected}
		}
		r.connected.Store(true)
		slog.Info("queue broker reachable again")
	}

	counts, err := r.queue.Counts(probeCtx)
	if err != nil {
		if r.connected.CompareAndSwap(true, false) {
			slog.Warn("queue broker unreachable, reporting degraded health", "error", err)
		}
		return Health{Status: StatusDisconnected}
	}

	metrics.QueueDepth.WithLabelValues(models.JobStateWaiting).Set(float64(counts.Waiting))
	metrics.QueueDepth.WithLabelValues(models.JobStateActive).Set(float64(counts.Active))
	metrics.QueueDepth.WithLabelValues(models.JobStateDelayed).Set(float64(counts.Delayed))
	metrics.QueueDepth.WithLabelValues(models.JobStateCompleted).Set(float64(counts.Completed))
	metrics.QueueDepth.WithLabelValues(models.JobStateFailed).Set(float64(counts.Failed))

	return Health{Status: StatusConnected, Counts: counts}
}
