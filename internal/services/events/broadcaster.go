package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued     EventType = "request.queued"
	EventTypeRequestProcessing EventType = "request.processing"
	EventTypeRequestCompleted  EventType = "request.completed"
	EventTypeRequestFailed     EventType = "request.failed"
	EventTypeStepCompleted     EventType = "story.step_completed"
	EventTypeStoryEnded        EventType = "story.ended"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	StoryID   string         `json:"story_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes story events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel is the Pub/Sub channel carrying the events of one story
func Channel(storyID uuid.UUID) string {
	return fmt.Sprintf("story-events:%s", storyID.String())
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, storyID uuid.UUID, requestID string, requestType string) error {
	return b.publish(ctx, storyID, Event{
		Type:      EventTypeRequestQueued,
		RequestID: requestID,
		Data: map[string]any{
			"status": "queued",
			"type":   requestType,
		},
	})
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, storyID uuid.UUID, requestID string, workerID string) error {
	return b.publish(ctx, storyID, Event{
		Type:      EventTypeRequestProcessing,
		RequestID: requestID,
		Data: map[string]any{
			"status":    "processing",
			"worker_id": workerID,
		},
	})
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, storyID uuid.UUID, requestID string, result map[string]any) error {
	return b.publish(ctx, storyID, Event{
		Type:      EventTypeRequestCompleted,
		RequestID: requestID,
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	})
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, storyID uuid.UUID, requestID string, errorMsg string) error {
	return b.publish(ctx, storyID, Event{
		Type:      EventTypeRequestFailed,
		RequestID: requestID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

// PublishStepCompleted publishes one engagement/reflection step
func (b *Broadcaster) PublishStepCompleted(ctx context.Context, storyID uuid.UUID, iteration, committed, repaired, year int, impasse bool) error {
	return b.publish(ctx, storyID, Event{
		Type: EventTypeStepCompleted,
		Data: map[string]any{
			"iteration": iteration,
			"committed": committed,
			"repaired":  repaired,
			"impasse":   impasse,
			"year":      year,
		},
	})
}

// PublishStoryEnded publishes the terminal state of a story
func (b *Broadcaster) PublishStoryEnded(ctx context.Context, storyID uuid.UUID, actions int) error {
	return b.publish(ctx, storyID, Event{
		Type: EventTypeStoryEnded,
		Data: map[string]any{
			"actions": actions,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, storyID uuid.UUID, event Event) error {
	event.StoryID = storyID.String()
	channel := Channel(storyID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}
