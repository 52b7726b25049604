// Package events distributes turn lifecycle notifications over Redis
// Pub/Sub so the API can stream them to clients via SSE.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnQueued     EventType = "turn.queued"
	EventTypeTurnProcessing EventType = "turn.processing"
	EventTypeTurnCompleted  EventType = "turn.completed"
	EventTypeTurnFailed     EventType = "turn.failed"
	EventTypeStateUpdated   EventType = "chronicle.state_updated"
)

// Event represents a generic event structure
type Event struct {
	Type        EventType      `json:"type"`
	TurnID      string         `json:"turn_id,omitempty"`
	ChronicleID string         `json:"chronicle_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

func channelFor(chronicleID uuid.UUID) string {
	return fmt.Sprintf("chronicle-events:%s", chronicleID)
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishTurnQueued(ctx context.Context, chronicleID uuid.UUID, turnID string) error {
	return b.publish(ctx, chronicleID, Event{
		Type:        EventTypeTurnQueued,
		TurnID:      turnID,
		ChronicleID: chronicleID.String(),
		Data:        map[string]any{"status": "queued"},
	})
}

func (b *Broadcaster) PublishTurnProcessing(ctx context.Context, chronicleID uuid.UUID, turnID, action string) error {
	return b.publish(ctx, chronicleID, Event{
		Type:        EventTypeTurnProcessing,
		TurnID:      turnID,
		ChronicleID: chronicleID.String(),
		Data: map[string]any{
			"status": "processing",
			"action": action,
		},
	})
}

func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, chronicleID uuid.UUID, turnID string, resp *chat.TurnResponse) error {
	return b.publish(ctx, chronicleID, Event{
		Type:        EventTypeTurnCompleted,
		TurnID:      turnID,
		ChronicleID: chronicleID.String(),
		Data: map[string]any{
			"status": "completed",
			"result": resp,
		},
	})
}

func (b *Broadcaster) PublishTurnFailed(ctx context.Context, chronicleID uuid.UUID, turnID, errorMsg string) error {
	return b.publish(ctx, chronicleID, Event{
		Type:        EventTypeTurnFailed,
		TurnID:      turnID,
		ChronicleID: chronicleID.String(),
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

func (b *Broadcaster) PublishStateUpdated(ctx context.Context, chronicleID uuid.UUID, day int, mode string) error {
	return b.publish(ctx, chronicleID, Event{
		Type:        EventTypeStateUpdated,
		ChronicleID: chronicleID.String(),
		Data: map[string]any{
			"current_day":       day,
			"conversation_mode": mode,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, chronicleID uuid.UUID, event Event) error {
	channel := channelFor(chronicleID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"turn_id", event.TurnID,
	)
	return nil
}

// Subscribe opens a Pub/Sub subscription for one chronicle's events.
// The caller must Close the returned PubSub when done.
func Subscribe(ctx context.Context, redisClient *redis.Client, chronicleID uuid.UUID) *redis.PubSub {
	return redisClient.Subscribe(ctx, channelFor(chronicleID))
}
