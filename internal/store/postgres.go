package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const resultColumns = `job_id, user_id, text, sentiment, confidence, all_scores,
	intents, ai_processed, source, word_count, char_count, processed_at`

// UpsertResult inserts or replaces the record for rec.JobID. Last write
// wins; a given job id maps to at most one row regardless of retries.
func (s *PostgresStore) UpsertResult(ctx context.Context, rec *models.StoredResult) error {
	scores, err := json.Marshal(rec.AllScores)
	if err != nil {
		return fmt.Errorf("encoding scores: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO feedback_results
		   (job_id, user_id, text, sentiment, confidence, all_scores, intents,
		    ai_processed, source, word_count, char_count, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (job_id) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   text = EXCLUDED.text,
		   sentiment = EXCLUDED.sentiment,
		   confidence = EXCLUDED.confidence,
		   all_scores = EXCLUDED.all_scores,
		   intents = EXCLUDED.intents,
		   ai_processed = EXCLUDED.ai_processed,
		   source = EXCLUDED.source,
		   word_count = EXCLUDED.word_count,
		   char_count = EXCLUDED.char_count,
		   processed_at = EXCLUDED.processed_at,
		   updated_at = NOW()`,
		rec.JobID, rec.UserID, rec.Text, rec.Sentiment, rec.Confidence, scores,
		rec.Intents, rec.AIProcessed, rec.Metadata.Source,
		rec.Metadata.WordCount, rec.Metadata.CharCount, rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", rec.JobID, err)
	}
	return nil
}

func (s *PostgresStore) GetResult(ctx context.Context, jobID string) (*models.StoredResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM feedback_results WHERE job_id = $1`, jobID)

	rec, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", jobID, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.StoredResult, int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback_results WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	rows, err := s.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM feedback_results
		 WHERE user_id = $1 ORDER BY processed_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := []*models.StoredResult{}
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, rec)
	}
	return results, total, rows.Err()
}

func (s *PostgresStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM feedback_results WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete results for user %s: %w", userID, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) StatsByUser(ctx context.Context, userID string) (*UserStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sentiment, COUNT(*), AVG(confidence)
		 FROM feedback_results WHERE user_id = $1 GROUP BY sentiment`, userID)
	if err != nil {
		return nil, fmt.Errorf("stats for user %s: %w", userID, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	avgs := map[string]float64{}
	total := 0
	for rows.Next() {
		var sentiment string
		var count int
		var avg float64
		if err := rows.Scan(&sentiment, &count, &avg); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		counts[sentiment] = count
		avgs[sentiment] = avg
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats for user %s: %w", userID, err)
	}

	breakdown := make(map[string]models.SentimentStat, len(models.CanonicalLabels))
	for _, label := range models.CanonicalLabels {
		stat := models.SentimentStat{Count: counts[label]}
		if total > 0 {
			stat.Percentage = math.Round(float64(counts[label])/float64(total)*1000) / 10
		}
		if counts[label] > 0 {
			stat.AvgConfidence = math.Round(avgs[label]*1000) / 1000
		}
		breakdown[label] = stat
	}

	return &UserStats{Total: total, Breakdown: breakdown}, nil
}

// scanResult reads one feedback_results row in resultColumns order.
func scanResult(row pgx.Row) (*models.StoredResult, error) {
	var rec models.StoredResult
	var scores []byte
	err := row.Scan(&rec.JobID, &rec.UserID, &rec.Text, &rec.Sentiment,
		&rec.Confidence, &scores, &rec.Intents, &rec.AIProcessed,
		&rec.Metadata.Source, &rec.Metadata.WordCount, &rec.Metadata.CharCount,
		&rec.ProcessedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scores, &rec.AllScores); err != nil {
		return nil, fmt.Errorf("decoding scores: %w", err)
	}
	return &rec, nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
