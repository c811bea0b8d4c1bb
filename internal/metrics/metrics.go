// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline. Collectors are registered on the default registry and served by
// the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed counts finished analyses by outcome source.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_jobs_processed_total",
		Help: "Analyses completed, labeled by result source",
	}, []string{"source"})

	// InferenceDuration observes wall time of external classifier calls.
	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedpulse_inference_duration_seconds",
		Help:    "Latency of external sentiment classification calls",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"outcome"})

	// QueueDepth reports the last observed queue state counts.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feedpulse_queue_jobs",
		Help: "Jobs in the queue by state, from the last health probe",
	}, []string{"state"})

	// QueueRetries counts delivery attempts that were rescheduled.
	QueueRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedpulse_queue_retries_total",
		Help: "Jobs rescheduled for another delivery attempt",
	})
)
