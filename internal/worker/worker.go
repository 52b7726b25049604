package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/internal/services/events"
	"github.com/rodrgost/cronicas-carmesim/internal/services/queue"
	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

const (
	dequeueTimeout = 5 * time.Second
	lockTTL        = 30 * time.Second
)

// Worker pulls turns from the queue and processes them. A per-chronicle
// lock keeps concurrent workers from interleaving turns of the same
// chronicle; contended turns are re-queued.
type Worker struct {
	id          string
	queue       *queue.TurnQueue
	processor   *TurnProcessor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(turnQueue *queue.TurnQueue, processor *TurnProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       turnQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing turns from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNext(); err != nil {
				w.log.Error("Error processing turn", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

func (w *Worker) processNext() error {
	ctx, cancel := context.WithTimeout(w.ctx, dequeueTimeout+time.Second)
	defer cancel()

	job, err := w.queue.BlockingDequeue(ctx, dequeueTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil // shutting down
		}
		return fmt.Errorf("failed to dequeue turn: %w", err)
	}
	if job == nil {
		return nil // timeout, loop again
	}

	locked, err := w.acquireChronicleLock(job.ChronicleID)
	if err != nil {
		return fmt.Errorf("failed to acquire chronicle lock: %w", err)
	}
	if !locked {
		// Another worker holds this chronicle. Re-queue at the end
		// and move on.
		w.log.Info("Chronicle locked, re-queueing turn",
			"worker_id", w.id,
			"turn_id", job.ID,
			"chronicle_id", job.ChronicleID.String(),
		)
		if err := w.queue.Enqueue(w.ctx, job); err != nil {
			return fmt.Errorf("failed to re-queue turn: %w", err)
		}
		return nil
	}

	defer w.releaseChronicleLock(job.ChronicleID)
	return w.processJob(job)
}

func (w *Worker) processJob(job *queue.Job) error {
	w.log.Info("Processing turn",
		"worker_id", w.id,
		"turn_id", job.ID,
		"chronicle_id", job.ChronicleID.String(),
	)
	start := time.Now()

	if err := w.broadcaster.PublishTurnProcessing(w.ctx, job.ChronicleID, job.ID, job.Action); err != nil {
		w.log.Error("Failed to publish processing event", "error", err)
		// Don't fail the turn just because event publishing failed
	}

	req := &chat.TurnRequest{
		ChronicleID: job.ChronicleID,
		UserID:      job.UserID,
		Action:      job.Action,
		Language:    job.Language,
	}

	resp, err := w.processor.ProcessTurn(w.ctx, req)
	if err != nil {
		w.log.Error("Turn processing failed",
			"error", err,
			"turn_id", job.ID,
			"chronicle_id", job.ChronicleID.String(),
		)
		if pubErr := w.broadcaster.PublishTurnFailed(w.ctx, job.ChronicleID, job.ID, err.Error()); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process turn: %w", err)
	}

	w.log.Info("Turn processed",
		"worker_id", w.id,
		"turn_id", job.ID,
		"degraded", resp.Error != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := w.broadcaster.PublishTurnCompleted(w.ctx, job.ChronicleID, job.ID, resp); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}

// acquireChronicleLock attempts to acquire the lock for a chronicle.
// Returns true if the lock was acquired, false if already locked.
func (w *Worker) acquireChronicleLock(chronicleID uuid.UUID) (bool, error) {
	lockKey := fmt.Sprintf("chronicle-lock:%s", chronicleID.String())

	result, err := w.redisClient.SetNX(w.ctx, lockKey, w.id, lockTTL).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

// releaseChronicleLock releases the lock for a chronicle.
func (w *Worker) releaseChronicleLock(chronicleID uuid.UUID) {
	lockKey := fmt.Sprintf("chronicle-lock:%s", chronicleID.String())

	// Only delete if we own the lock
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	if err := script.Run(w.ctx, w.redisClient, []string{lockKey}, w.id).Err(); err != nil {
		w.log.Error("Failed to release chronicle lock", "error", err, "chronicle_id", chronicleID.String())
	}
}
