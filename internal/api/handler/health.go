package handler

import (
	"net/http"

	"github.com/nikhilgowda/feedpulse/internal/api/response"
	"github.com/nikhilgowda/feedpulse/internal/queue"
	"github.com/nikhilgowda/feedpulse/internal/store"
)

type healthReport struct {
	Status   string       `json:"status"`
	Database string       `json:"database"`
	Queue    queue.Health `json:"queue"`
}

// NewHealth handles GET /api/v1/health. The overall status is "ok" only
// when both the database and the job queue are reachable; a degraded
// dependency is reported in the body with a 200, since the API itself
// is still serving.
func NewHealth(results store.Store, queueHealth QueueHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{
			Status:   "ok",
			Database: "connected",
			Queue:    queueHealth.Report(r.Context()),
		}

		if err := results.Ping(r.Context()); err != nil {
			report.Status = "degraded"
			report.Database = "disconnected"
		}
		if report.Queue.Status != queue.StatusConnected {
			report.Status = "degraded"
		}

		response.JSON(w, report)
	}
}
