// Package analyzer orchestrates sentiment analysis: it races the external
// classifier against a time budget and falls back to the deterministic
// heuristic so every job produces a result. It is the pipeline's
// failure-absorbing boundary; Analyze never fails.
package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nikhilgowda/feedpulse/internal/classifier"
	"github.com/nikhilgowda/feedpulse/internal/inference"
	"github.com/nikhilgowda/feedpulse/internal/metrics"
	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// DefaultBudget is how long Analyze waits for the external classifier before
// falling back. The transport keeps its own, longer cap so an abandoned call
// cannot pin a connection.
const DefaultBudget = 10 * time.Second

// Service runs the analysis pipeline. Used by both the inline request path
// and the queue worker so the two paths cannot drift.
type Service struct {
	client inference.Client
	budget time.Duration

	// One log line per distinct failure mode; repeated auth failures must
	// not storm the logs.
	loggedModes sync.Map
}

// New creates a Service. A zero budget falls back to DefaultBudget.
func New(client inference.Client, budget time.Duration) *Service {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Service{client: client, budget: budget}
}

type aiOutcome struct {
	result *inference.Result
	err    error
}

// Analyze classifies the job's text and always returns a complete result.
// AI output wins when it arrives inside the budget; otherwise the heuristic
// classifier takes over and the result is marked as fallback.
func (s *Service) Analyze(ctx context.Context, job models.Job) *models.AnalysisResult {
	text := strings.TrimSpace(job.Text)

	raceCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	ch := make(chan aiOutcome, 1)
	start := time.Now()
	go func() {
		result, err := s.client.Classify(raceCtx, text)
		ch <- aiOutcome{result: result, err: err}
	}()

	var aiResult *inference.Result
	select {
	case out := <-ch:
		if out.err != nil {
			metrics.InferenceDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			s.logFailure(out.err, job.ID)
		} else {
			metrics.InferenceDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
			aiResult = out.result
		}
	case <-raceCtx.Done():
		// Budget elapsed; the in-flight call is abandoned and its result,
		// if any, discarded.
		metrics.InferenceDuration.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		s.logFailure(raceCtx.Err(), job.ID)
	}

	intents := classifier.DetectIntents(text)

	result := &models.AnalysisResult{
		JobID:       job.ID,
		Intents:     intents,
		ProcessedAt: time.Now().UTC(),
		Metadata: models.ResultMetadata{
			WordCount: len(strings.Fields(text)),
			CharCount: len([]rune(text)),
		},
	}

	if aiResult != nil {
		result.Sentiment = aiResult.Sentiment
		result.Confidence = aiResult.Confidence
		result.AllScores = aiResult.AllScores
		result.AIProcessed = true
		result.Metadata.Source = models.SourceAI
	} else {
		h := classifier.Classify(text)
		result.Sentiment = h.Sentiment
		result.Confidence = h.Confidence
		result.AllScores = scoreEntries(h.Scores)
		result.AIProcessed = false
		result.Metadata.Source = models.SourceFallback
	}

	metrics.JobsProcessed.WithLabelValues(result.Metadata.Source).Inc()
	return result
}

// logFailure logs each distinct failure mode once at warn, then at debug.
func (s *Service) logFailure(err error, jobID string) {
	mode := failureMode(err)
	if _, seen := s.loggedModes.LoadOrStore(mode, true); !seen {
		slog.Warn("sentiment inference failed, using heuristic fallback",
			"mode", mode, "error", err, "job_id", jobID)
		return
	}
	slog.Debug("sentiment inference failed, using heuristic fallback",
		"mode", mode, "job_id", jobID)
}

func failureMode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case inference.IsRetryable(err):
		return "retryable"
	default:
		return "non-retryable"
	}
}

// scoreEntries converts a heuristic score map into the fixed
// negative/neutral/positive presentation order.
func scoreEntries(scores map[string]float64) []models.ScoreEntry {
	entries := make([]models.ScoreEntry, 0, len(models.CanonicalLabels))
	for _, label := range models.CanonicalLabels {
		score := scores[label]
		entries = append(entries, models.ScoreEntry{
			Label:      label,
			Score:      score,
			Percentage: roundPct(score),
		})
	}
	return entries
}

func roundPct(score float64) float64 {
	return math.Round(score*1000) / 10
}
