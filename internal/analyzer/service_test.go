package analyzer_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nikhilgowda/feedpulse/internal/analyzer"
	"github.com/nikhilgowda/feedpulse/internal/inference"
	"github.com/nikhilgowda/feedpulse/internal/inference/mock"
	"github.com/nikhilgowda/feedpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(text string) models.Job {
	return models.Job{
		ID:          "job-1",
		UserID:      "user-1",
		Text:        text,
		SubmittedAt: time.Now().UTC(),
	}
}

func TestAnalyze_AISuccess(t *testing.T) {
	svc := analyzer.New(mock.NewClient(), time.Second)

	result := svc.Analyze(context.Background(), testJob("love this"))

	require.NotNil(t, result)
	assert.True(t, result.AIProcessed)
	assert.Equal(t, models.SourceAI, result.Metadata.Source)
	assert.Equal(t, models.SentimentPositive, result.Sentiment)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "job-1", result.JobID)
	assert.NotEmpty(t, result.Intents)
}

func TestAnalyze_AIFailureFallsBack(t *testing.T) {
	failing := mock.NewFailingClient(&inference.Error{
		Op: "classify", Status: 503, Retryable: true,
		Err: inference.ErrServiceUnavailable,
	})
	svc := analyzer.New(failing, time.Second)

	result := svc.Analyze(context.Background(), testJob("This is a great product, I love it!"))

	require.NotNil(t, result)
	assert.False(t, result.AIProcessed)
	assert.Equal(t, models.SourceFallback, result.Metadata.Source)
	assert.Equal(t, models.SentimentPositive, result.Sentiment)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.Contains(t, result.Intents, "positive_feedback")
}

func TestAnalyze_NonRetryableFailureAlsoFallsBack(t *testing.T) {
	failing := mock.NewFailingClient(&inference.Error{
		Op: "classify", Status: 401, Retryable: false,
		Err: inference.ErrRequestRejected,
	})
	svc := analyzer.New(failing, time.Second)

	result := svc.Analyze(context.Background(), testJob("something neutral here"))

	require.NotNil(t, result)
	assert.False(t, result.AIProcessed)
	assert.Equal(t, models.SentimentNeutral, result.Sentiment)
}

func TestAnalyze_TimeoutUsesFallback(t *testing.T) {
	svc := analyzer.New(mock.NewTimeoutClient(), 50*time.Millisecond)

	start := time.Now()
	result := svc.Analyze(context.Background(), testJob("great service"))
	elapsed := time.Since(start)

	require.NotNil(t, result)
	assert.False(t, result.AIProcessed, "a result arriving after the budget must be discarded")
	assert.Equal(t, models.SourceFallback, result.Metadata.Source)
	assert.Less(t, elapsed, time.Second, "analyze must return promptly after the budget")
}

func TestAnalyze_SlowAISuccessAfterBudgetIsDiscarded(t *testing.T) {
	slow := &mock.Client{
		Name_: "mock-slow",
		ClassifyFunc: func(ctx context.Context, _ string) (*inference.Result, error) {
			select {
			case <-time.After(300 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &inference.Result{Sentiment: models.SentimentNegative, Confidence: 1}, nil
		},
	}
	svc := analyzer.New(slow, 30*time.Millisecond)

	result := svc.Analyze(context.Background(), testJob("wonderful"))

	assert.False(t, result.AIProcessed)
	assert.Equal(t, models.SentimentPositive, result.Sentiment, "heuristic verdict, not the late AI one")
}

func TestAnalyze_Metadata(t *testing.T) {
	svc := analyzer.New(mock.NewClient(), time.Second)

	result := svc.Analyze(context.Background(), testJob("  three little words  "))

	assert.Equal(t, 3, result.Metadata.WordCount)
	assert.Equal(t, len([]rune("three little words")), result.Metadata.CharCount)
	assert.False(t, result.ProcessedAt.IsZero())
}

func TestAnalyze_ScoreInvariants(t *testing.T) {
	texts := []string{
		"love it",
		"hate it",
		"neither here nor there",
		"great great bad",
		"",
	}
	failing := mock.NewFailingClient(inference.ErrServiceUnavailable)
	svc := analyzer.New(failing, time.Second)

	for _, text := range texts {
		result := svc.Analyze(context.Background(), testJob(text))

		require.Len(t, result.AllScores, 3, "text %q", text)
		var sum float64
		for _, s := range result.AllScores {
			assert.GreaterOrEqual(t, s.Score, 0.0)
			assert.LessOrEqual(t, s.Score, 1.0)
			sum += s.Score
		}
		assert.InDelta(t, 1.0, sum, 1e-3, "text %q", text)

		// Confidence must equal the score of the chosen sentiment.
		for _, s := range result.AllScores {
			if s.Label == result.Sentiment {
				assert.True(t, math.Abs(s.Score-result.Confidence) < 1e-9, "text %q", text)
			}
		}
		assert.NotEmpty(t, result.Intents, "text %q", text)
	}
}

func TestAnalyze_FixedScoreOrder(t *testing.T) {
	svc := analyzer.New(mock.NewFailingClient(inference.ErrServiceUnavailable), time.Second)

	result := svc.Analyze(context.Background(), testJob("whatever"))

	require.Len(t, result.AllScores, 3)
	assert.Equal(t, models.SentimentNegative, result.AllScores[0].Label)
	assert.Equal(t, models.SentimentNeutral, result.AllScores[1].Label)
	assert.Equal(t, models.SentimentPositive, result.AllScores[2].Label)
}
