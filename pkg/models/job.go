// Package models contains shared data models used across the FeedPulse codebase.
package models

import "time"

// Queue job states. A job moves waiting -> active -> completed|failed;
// a retry scheduled with backoff sits in delayed until its ready time.
const (
	JobStateWaiting   = "waiting"
	JobStateDelayed   = "delayed"
	JobStateActive    = "active"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
)

// MaxTextLength is the largest feedback text accepted for analysis.
const MaxTextLength = 5000

// Job is one unit of analysis work. Created once at submission and never
// mutated; ID is the idempotency key for both the queue and the store.
type Job struct {
	ID          string    `json:"jobId"`
	UserID      string    `json:"userId"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
}
