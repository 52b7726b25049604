// Package queue moves player turns from the API to the worker over a
// Redis list. One global list carries all chronicles; per-chronicle
// ordering is enforced by the worker's chronicle lock, not by the
// queue itself.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

const turnsKey = "turns"

// Job is one queued player turn.
type Job struct {
	ID          string    `json:"id"`
	ChronicleID uuid.UUID `json:"chronicle_id"`
	UserID      string    `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	Language    string    `json:"player_language,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// NewJob wraps a validated turn request for queueing.
func NewJob(req *chat.TurnRequest) *Job {
	return &Job{
		ID:          uuid.NewString(),
		ChronicleID: req.ChronicleID,
		UserID:      req.UserID,
		Action:      req.Action,
		Language:    req.Language,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// TurnQueue manages the global turn list.
type TurnQueue struct {
	rdb *redis.Client
}

func NewTurnQueue(rdb *redis.Client) *TurnQueue {
	return &TurnQueue{rdb: rdb}
}

// Enqueue adds a turn to the end of the global queue.
func (q *TurnQueue) Enqueue(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize turn job: %w", err)
	}
	if err := q.rdb.RPush(ctx, turnsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue turn: %w", err)
	}
	return nil
}

// Dequeue removes and returns the next turn. Returns nil when the
// queue is empty.
func (q *TurnQueue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.rdb.LPop(ctx, turnsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue turn: %w", err)
	}
	return parseJob(result)
}

// BlockingDequeue blocks until a turn is available. timeout 0 waits
// forever.
func (q *TurnQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.rdb.BLPop(ctx, timeout, turnsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // timed out
		}
		return nil, fmt.Errorf("failed to dequeue turn: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return parseJob(result[1])
}

// Depth returns the number of queued turns.
func (q *TurnQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.rdb.LLen(ctx, turnsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

func parseJob(data string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to parse turn job: %w", err)
	}
	return &job, nil
}
