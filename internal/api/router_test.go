package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikhilgowda/feedpulse/internal/queue"
	"github.com/nikhilgowda/feedpulse/internal/store"
	"github.com/nikhilgowda/feedpulse/pkg/models"
)

type stubStore struct{}

func (stubStore) Ping(ctx context.Context) error { return nil }
func (stubStore) UpsertResult(ctx context.Context, rec *models.StoredResult) error {
	return nil
}
func (stubStore) GetResult(ctx context.Context, jobID string) (*models.StoredResult, error) {
	return nil, store.ErrNotFound
}
func (stubStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.StoredResult, int, error) {
	return nil, 0, nil
}
func (stubStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}
func (stubStore) StatsByUser(ctx context.Context, userID string) (*store.UserStats, error) {
	return &store.UserStats{Breakdown: map[string]models.SentimentStat{}}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, job models.Job) *models.AnalysisResult {
	return &models.AnalysisResult{JobID: job.ID}
}

type stubJobs struct{}

func (stubJobs) Enqueue(ctx context.Context, job models.Job) error { return nil }
func (stubJobs) Get(ctx context.Context, jobID string) (*queue.JobStatus, error) {
	return nil, queue.ErrNotFound
}

type stubHealth struct{}

func (stubHealth) Report(ctx context.Context) queue.Health {
	return queue.Health{Status: queue.StatusConnected, Counts: &queue.StateCounts{}}
}

func testRouter() http.Handler {
	return NewRouter(Dependencies{
		Store:       stubStore{},
		Analyzer:    stubAnalyzer{},
		Jobs:        stubJobs{},
		QueueHealth: stubHealth{},
	})
}

func TestRouterRoutes(t *testing.T) {
	r := testRouter()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/health/queue", http.StatusOK},
		{http.MethodGet, "/api/v1/feedback/some-id", http.StatusNotFound},
		{http.MethodGet, "/api/v1/feedback?user_id=u", http.StatusOK},
		{http.MethodGet, "/api/v1/feedback/stats?user_id=u", http.StatusOK},
		{http.MethodDelete, "/api/v1/feedback?user_id=u", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{http.MethodPut, "/api/v1/feedback", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRouterPanicRecovered(t *testing.T) {
	r := NewRouter(Dependencies{
		Store:       stubStore{},
		Analyzer:    stubAnalyzer{},
		Jobs:        stubJobs{},
		QueueHealth: panickyHealth{},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/queue", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

type panickyHealth struct{}

func (panickyHealth) Report(ctx context.Context) queue.Health { panic("broker client nil") }
