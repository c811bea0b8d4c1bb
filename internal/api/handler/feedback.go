package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilgowda/feedpulse/internal/api/response"
	"github.com/nikhilgowda/feedpulse/internal/queue"
	"github.com/nikhilgowda/feedpulse/internal/store"
	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// Analyzer produces a sentiment result for a job. It never fails; the
// service falls back to the heuristic path internally.
type Analyzer interface {
	Analyze(ctx context.Context, job models.Job) *models.AnalysisResult
}

// Jobs is the slice of the queue the HTTP layer needs.
type Jobs interface {
	Enqueue(ctx context.Context, job models.Job) error
	Get(ctx context.Context, jobID string) (*queue.JobStatus, error)
}

// QueueHealth reports broker reachability and state counts.
type QueueHealth interface {
	Report(ctx context.Context) queue.Health
}

type submitRequest struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
	JobID  string `json:"jobId,omitempty"`
	Async  bool   `json:"async,omitempty"`
}

type submitAccepted struct {
	JobID       string    `json:"jobId"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type submitMetrics struct {
	WordCount   int       `json:"wordCount"`
	CharCount   int       `json:"charCount"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type submitCompleted struct {
	JobID    string                 `json:"jobId"`
	Status   string                 `json:"status"`
	Analysis *models.AnalysisResult `json:"analysis"`
	Metrics  submitMetrics          `json:"metrics"`
}

// NewSubmitFeedback handles POST /api/v1/feedback. By default the job is
// enqueued and processed by a worker; with async=false the analysis runs
// inline and the stored result is returned immediately.
func NewSubmitFeedback(analyzer Analyzer, results store.Store, jobs Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := decodeJSON(r, &req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Request body must be valid JSON", nil)
			return
		}

		req.UserID = strings.TrimSpace(req.UserID)
		req.Text = strings.TrimSpace(req.Text)

		if req.UserID == "" {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "userId is required", nil)
			return
		}
		if req.Text == "" {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "text must not be empty", nil)
			return
		}
		if utf8.RuneCountInString(req.Text) > models.MaxTextLength {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "text exceeds maximum length", map[string]any{
					"maxLength": models.MaxTextLength,
				})
			return
		}

		job := models.Job{
			ID:          req.JobID,
			UserID:      req.UserID,
			Text:        req.Text,
			SubmittedAt: time.Now().UTC(),
		}
		if job.ID == "" {
			job.ID = uuid.NewString()
		}

		if req.Async {
			if err := jobs.Enqueue(r.Context(), job); err != nil {
				slog.Error("enqueue failed", "job_id", job.ID, "error", err)
				response.Error(w, http.StatusServiceUnavailable,
					"QUEUE_UNAVAILABLE", "Job queue is not accepting work", nil)
				return
			}
			response.Accepted(w, submitAccepted{
				JobID:       job.ID,
				Status:      models.JobStateWaiting,
				SubmittedAt: job.SubmittedAt,
			})
			return
		}

		result := analyzer.Analyze(r.Context(), job)
		rec := &models.StoredResult{
			AnalysisResult: *result,
			UserID:         job.UserID,
			Text:           job.Text,
		}
		if err := results.UpsertResult(r.Context(), rec); err != nil {
			slog.Error("store result failed", "job_id", job.ID, "error", err)
			response.Error(w, http.StatusServiceUnavailable,
				"STORE_UNAVAILABLE", "Result could not be persisted", nil)
			return
		}

		response.Created(w, submitCompleted{
			JobID:    job.ID,
			Status:   models.JobStateCompleted,
			Analysis: result,
			Metrics: submitMetrics{
				WordCount:   result.Metadata.WordCount,
				CharCount:   result.Metadata.CharCount,
				SubmittedAt: job.SubmittedAt,
			},
		})
	}
}

type resultPayload struct {
	JobID    string                 `json:"jobId"`
	Status   string                 `json:"status"`
	Attempts int                    `json:"attempts,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Analysis *models.AnalysisResult `json:"analysis,omitempty"`
}

// NewGetResult handles GET /api/v1/feedback/{jobID}. The queue is
// consulted first for in-flight state; completed jobs and jobs that have
// aged out of the queue fall through to the store.
func NewGetResult(jobs Jobs, results store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		status, err := jobs.Get(r.Context(), jobID)
		if err != nil && !errors.Is(err, queue.ErrNotFound) {
			slog.Warn("queue lookup failed, falling back to store",
				"job_id", jobID, "error", err)
		}

		if status != nil && status.State != models.JobStateCompleted {
			response.JSON(w, resultPayload{
				JobID:    jobID,
				Status:   status.State,
				Attempts: status.Attempts,
				Error:    status.LastErr,
			})
			return
		}

		stored, err := results.GetResult(r.Context(), jobID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				slog.Error("result lookup failed", "job_id", jobID, "error", err)
			}
			if status != nil {
				// Completed in the queue but the row is not visible yet.
				response.JSON(w, resultPayload{JobID: jobID, Status: status.State})
				return
			}
			response.Error(w, http.StatusNotFound,
				"NOT_FOUND", "No job or result with that id", nil)
			return
		}

		response.JSON(w, resultPayload{
			JobID:    jobID,
			Status:   models.JobStateCompleted,
			Analysis: &stored.AnalysisResult,
		})
	}
}

// NewListHistory handles GET /api/v1/feedback?user_id=...&page=&limit=.
func NewListHistory(results store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "user_id query parameter is required", nil)
			return
		}

		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(r, "limit", 0)

		items, total, err := results.ListByUser(r.Context(), userID, page, limit)
		if err != nil {
			slog.Error("list history failed", "user_id", userID, "error", err)
			response.Error(w, http.StatusServiceUnavailable,
				"STORE_UNAVAILABLE", "History is temporarily unavailable", nil)
			return
		}
		if limit <= 0 {
			limit = store.DefaultPageSize
		}
		if limit > store.MaxPageSize {
			limit = store.MaxPageSize
		}

		response.Collection(w, items, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewUserStats handles GET /api/v1/feedback/stats?user_id=...
func NewUserStats(results store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "user_id query parameter is required", nil)
			return
		}

		stats, err := results.StatsByUser(r.Context(), userID)
		if err != nil {
			slog.Error("stats failed", "user_id", userID, "error", err)
			response.Error(w, http.StatusServiceUnavailable,
				"STORE_UNAVAILABLE", "Stats are temporarily unavailable", nil)
			return
		}

		response.JSON(w, stats)
	}
}

type clearResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// NewClearHistory handles DELETE /api/v1/feedback?user_id=...
func NewClearHistory(results store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "user_id query parameter is required", nil)
			return
		}

		deleted, err := results.DeleteAllByUser(r.Context(), userID)
		if err != nil {
			slog.Error("clear history failed", "user_id", userID, "error", err)
			response.Error(w, http.StatusServiceUnavailable,
				"STORE_UNAVAILABLE", "History could not be cleared", nil)
			return
		}

		response.JSON(w, clearResponse{DeletedCount: deleted})
	}
}

// NewQueueHealth handles GET /api/v1/health/queue. It always answers
// 200; a broker outage is reported in the body, not as an HTTP failure.
func NewQueueHealth(reporter QueueHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, reporter.Report(r.Context()))
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
