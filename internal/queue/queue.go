// Package queue implements a durable, at-least-once job queue on Redis with
// idempotent enqueue, exponential-backoff retries, bounded retention of
// finished jobs, and health introspection.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilgowda/feedpulse/pkg/models"
)

var ErrNotFound = errors.New("job not found")

// Key layout. Job hashes hold state and payload; the lists and zsets index
// ids by state. The delayed zset is scored by ready-at unix millis.
const (
	jobKeyPrefix = "feedpulse:job:"
	waitingKey   = "feedpulse:queue:waiting"
	activeKey    = "feedpulse:queue:active"
	delayedKey   = "feedpulse:queue:delayed"
	completedKey = "feedpulse:queue:completed"
	failedKey    = "feedpulse:queue:failed"
)

func jobKey(id string) string { return jobKeyPrefix + id }

// StateCounts is a snapshot of queue depth by state.
type StateCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// JobStatus is the queue's view of one job.
type JobStatus struct {
	Job      models.Job
	State    string
	Attempts int
	LastErr  string
}

// Queue is a Redis-backed job queue. Safe for concurrent use.
type Queue struct {
	rdb    *redis.Client
	policy RetryPolicy
}

// New creates a Queue with the given retry policy.
func New(rdb *redis.Client, policy RetryPolicy) *Queue {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &Queue{rdb: rdb, policy: policy}
}

// Ping checks broker connectivity.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Policy returns the queue's retry policy.
func (q *Queue) Policy() RetryPolicy { return q.policy }

// Enqueue adds a job in the waiting state. Idempotent: a job id that already
// exists in any state is a no-op, so redelivered submissions never create a
// second unit of work.
func (q *Queue) Enqueue(ctx context.Context, job models.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job payload: %w", err)
	}

	// HSETNX on the state field decides ownership of the id.
	created, err := q.rdb.HSetNX(ctx, jobKey(job.ID), "state", models.JobStateWaiting).Result()
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	if !created {
		return nil
	}

	now := time.Now().UTC()
	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(job.ID),
		"payload", payload,
		"attempts", 0,
		"created_at", now.Format(time.RFC3339Nano),
		"updated_at", now.Format(time.RFC3339Nano),
	)
	pipe.LPush(ctx, waitingKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Reserve promotes due delayed jobs, then blocks up to timeout for the next
// waiting job and moves it to active. Returns ErrNotFound when the wait
// times out with nothing to do.
func (q *Queue) Reserve(ctx context.Context, timeout time.Duration) (*JobStatus, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	id, err := q.rdb.BLMove(ctx, waitingKey, activeKey, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reserve job: %w", err)
	}

	attempts, err := q.rdb.HIncrBy(ctx, jobKey(id), "attempts", 1).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve job %s: %w", id, err)
	}
	if err := q.setState(ctx, id, models.JobStateActive, ""); err != nil {
		return nil, err
	}

	status, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status.Attempts = int(attempts)
	return status, nil
}

// Complete marks an active job completed and schedules it for garbage
// collection after the completed retention window.
func (q *Queue) Complete(ctx context.Context, id string) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, activeKey, 1, id)
	pipe.HSet(ctx, jobKey(id), "state", models.JobStateCompleted,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	pipe.ZAdd(ctx, completedKey, redis.Z{Score: nowMs(), Member: id})
	pipe.Expire(ctx, jobKey(id), CompletedRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// Fail records a failed delivery attempt. While attempts remain, the job is
// parked in the delayed set with exponential backoff; once the policy is
// exhausted it becomes terminally failed and is retained for inspection.
func (q *Queue) Fail(ctx context.Context, id string, attempts int, reason string) error {
	now := time.Now().UTC()

	if q.policy.Exhausted(attempts) {
		pipe := q.rdb.TxPipeline()
		pipe.LRem(ctx, activeKey, 1, id)
		pipe.HSet(ctx, jobKey(id), "state", models.JobStateFailed,
			"error", reason,
			"updated_at", now.Format(time.RFC3339Nano))
		pipe.ZAdd(ctx, failedKey, redis.Z{Score: nowMs(), Member: id})
		pipe.Expire(ctx, jobKey(id), FailedRetention)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("fail job %s: %w", id, err)
		}
		return nil
	}

	readyAt := now.Add(q.policy.Delay(attempts))
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, activeKey, 1, id)
	pipe.HSet(ctx, jobKey(id), "state", models.JobStateDelayed,
		"error", reason,
		"updated_at", now.Format(time.RFC3339Nano))
	pipe.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delay job %s: %w", id, err)
	}
	return nil
}

// Requeue returns an active job to the waiting state, e.g. when a worker
// shuts down mid-delivery. The interrupted attempt does not count.
func (q *Queue) Requeue(ctx context.Context, id string) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, activeKey, 1, id)
	pipe.HIncrBy(ctx, jobKey(id), "attempts", -1)
	pipe.HSet(ctx, jobKey(id), "state", models.JobStateWaiting,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	pipe.LPush(ctx, waitingKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeue job %s: %w", id, err)
	}
	return nil
}

// Get returns the queue's view of a job, or ErrNotFound for unknown ids.
func (q *Queue) Get(ctx context.Context, id string) (*JobStatus, error) {
	fields, err := q.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	var job models.Job
	if payload, ok := fields["payload"]; ok {
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, fmt.Errorf("decoding job %s payload: %w", id, err)
		}
	}
	attempts, _ := strconv.Atoi(fields["attempts"])

	return &JobStatus{
		Job:      job,
		State:    fields["state"],
		Attempts: attempts,
		LastErr:  fields["error"],
	}, nil
}

// Counts reports queue depth by state. Finished-job indexes are trimmed to
// their retention windows on the way, so counts reflect retained jobs only.
func (q *Queue) Counts(ctx context.Context) (*StateCounts, error) {
	now := time.Now().UTC()
	completedCutoff := strconv.FormatInt(now.Add(-CompletedRetention).UnixMilli(), 10)
	failedCutoff := strconv.FormatInt(now.Add(-FailedRetention).UnixMilli(), 10)

	pipe := q.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, completedKey, "-inf", completedCutoff)
	pipe.ZRemRangeByScore(ctx, failedKey, "-inf", failedCutoff)
	waiting := pipe.LLen(ctx, waitingKey)
	active := pipe.LLen(ctx, activeKey)
	delayed := pipe.ZCard(ctx, delayedKey)
	completed := pipe.ZCard(ctx, completedKey)
	failed := pipe.ZCard(ctx, failedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}

	return &StateCounts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Delayed:   delayed.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

// promoteDue moves delayed jobs whose backoff has elapsed back to waiting.
func (q *Queue) promoteDue(ctx context.Context) error {
	max := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	ids, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return fmt.Errorf("promote delayed jobs: %w", err)
	}

	for _, id := range ids {
		pipe := q.rdb.TxPipeline()
		pipe.ZRem(ctx, delayedKey, id)
		pipe.HSet(ctx, jobKey(id), "state", models.JobStateWaiting,
			"updated_at", time.Now().UTC().Format(time.RFC3339Nano))
		pipe.LPush(ctx, waitingKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("promote job %s: %w", id, err)
		}
	}
	return nil
}

func (q *Queue) setState(ctx context.Context, id, state, reason string) error {
	fields := []any{
		"state", state,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	}
	if reason != "" {
		fields = append(fields, "error", reason)
	}
	if err := q.rdb.HSet(ctx, jobKey(id), fields...).Err(); err != nil {
		return fmt.Errorf("set job %s state %s: %w", id, state, err)
	}
	return nil
}

func nowMs() float64 {
	return float64(time.Now().UTC().UnixMilli())
}
