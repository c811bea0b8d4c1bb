package store

import (
	"context"
	"errors"

	"github.com/nikhilgowda/feedpulse/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Pagination bounds for history listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Store is the data access interface for analysis results. All writes are
// upserts keyed by job id, which makes the store the pipeline's idempotency
// backstop: redeliveries and inline/queued double-processing converge on a
// single record.
type Store interface {
	Ping(ctx context.Context) error

	UpsertResult(ctx context.Context, rec *models.StoredResult) error
	GetResult(ctx context.Context, jobID string) (*models.StoredResult, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.StoredResult, int, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	StatsByUser(ctx context.Context, userID string) (*UserStats, error)
}

// UserStats aggregates one user's stored results per sentiment label.
// Breakdown always carries exactly the three canonical labels.
type UserStats struct {
	Total     int                             `json:"total"`
	Breakdown map[string]models.SentimentStat `json:"breakdown"`
}
