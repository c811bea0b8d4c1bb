// Package mock provides inference.Client implementations for tests and for
// running the server without a real sentiment service.
package mock

import (
	"context"

	"github.com/nikhilgowda/feedpulse/internal/inference"
	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// Client satisfies inference.Client for testing.
type Client struct {
	Name_        string
	ClassifyFunc func(ctx context.Context, text string) (*inference.Result, error)
}

func (c *Client) Name() string { return c.Name_ }

func (c *Client) Classify(ctx context.Context, text string) (*inference.Result, error) {
	if c.ClassifyFunc != nil {
		return c.ClassifyFunc(ctx, text)
	}
	return nil, nil
}

// NewClient returns a Client with a fixed confident-positive response.
func NewClient() *Client {
	return &Client{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, _ string) (*inference.Result, error) {
			return &inference.Result{
				Sentiment:  models.SentimentPositive,
				Confidence: 0.9,
				AllScores: []models.ScoreEntry{
					{Label: models.SentimentNegative, Score: 0.05, Percentage: 5},
					{Label: models.SentimentNeutral, Score: 0.05, Percentage: 5},
					{Label: models.SentimentPositive, Score: 0.9, Percentage: 90},
				},
				Raw: []inference.LabelScore{
					{Label: models.SentimentNegative, Score: 0.05},
					{Label: models.SentimentNeutral, Score: 0.05},
					{Label: models.SentimentPositive, Score: 0.9},
				},
			}, nil
		},
	}
}

// NewFailingClient returns a Client that always returns the given error.
func NewFailingClient(err error) *Client {
	return &Client{
		Name_: "mock-failing",
		ClassifyFunc: func(_ context.Context, _ string) (*inference.Result, error) {
			return nil, err
		},
	}
}

// NewTimeoutClient returns a Client that blocks until the context is
// cancelled.
func NewTimeoutClient() *Client {
	return &Client{
		Name_: "mock-timeout",
		ClassifyFunc: func(ctx context.Context, _ string) (*inference.Result, error) {
			<-ctx.Done()
			return nil, &inference.Error{Op: "classify", Retryable: true, Err: inference.ErrInferenceTimeout}
		},
	}
}

// Compile-time check that Client implements inference.Client.
var _ inference.Client = (*Client)(nil)
