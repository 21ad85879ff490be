package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/services/events"
	"github.com/jwebster45206/plotweaver/internal/services/queue"
	queuePkg "github.com/jwebster45206/plotweaver/pkg/queue"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/redis/go-redis/v9"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
)

// releaseScript deletes the lock only if this worker still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker processes step requests from the queue
type Worker struct {
	id          string
	queue       *queue.StepQueue
	processor   *StoryProcessor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(stepQueue *queue.StepQueue, processor *StoryProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       stepQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker id used as lock owner
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		// Queue is empty or timeout occurred - this is normal
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"story_id", req.StoryID.String(),
	)

	locked, err := w.acquireStoryLock(req.StoryID)
	if err != nil {
		return fmt.Errorf("failed to acquire story lock: %w", err)
	}
	if !locked {
		// Another worker is advancing this story
		w.log.Info("Story already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"story_id", req.StoryID.String(),
		)
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseStoryLock(req.StoryID)
	return w.processRequest(req)
}

func lockKey(storyID uuid.UUID) string {
	return fmt.Sprintf("story-lock:%s", storyID.String())
}

// acquireStoryLock returns true if the lock was acquired, false if another
// worker holds it
func (w *Worker) acquireStoryLock(storyID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(storyID), w.id, lockTTL).Result()
}

func (w *Worker) releaseStoryLock(storyID uuid.UUID) {
	ctx := context.WithoutCancel(w.ctx)
	if err := releaseScript.Run(ctx, w.redisClient, []string{lockKey(storyID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release story lock", "error", err, "story_id", storyID.String())
	}
}

// processRequest advances the story named by req
func (w *Worker) processRequest(req *queuePkg.Request) error {
	ctx := w.ctx
	start := time.Now()

	if err := w.broadcaster.PublishRequestProcessing(ctx, req.StoryID, req.RequestID, w.id); err != nil {
		w.log.Error("Failed to publish processing event", "error", err)
	}

	out, err := w.processor.Advance(ctx, req.StoryID, req.StepCount())
	if err != nil && !errors.Is(err, story.ErrStoryEnded) {
		if pubErr := w.broadcaster.PublishRequestFailed(ctx, req.StoryID, req.RequestID, err.Error()); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process %s request: %w", req.Type, err)
	}

	for _, res := range out.Results {
		if pubErr := w.broadcaster.PublishStepCompleted(ctx, req.StoryID, res.Iteration, res.Committed, res.Repaired, out.Story.Year(), res.Impasse); pubErr != nil {
			w.log.Error("Failed to publish step event", "error", pubErr)
		}
	}
	if out.Story.Ended() {
		if pubErr := w.broadcaster.PublishStoryEnded(ctx, req.StoryID, out.Story.Year()); pubErr != nil {
			w.log.Error("Failed to publish end event", "error", pubErr)
		}
	}

	w.log.Info("Request processed successfully",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"steps", len(out.Results),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result := map[string]any{
		"steps":       len(out.Results),
		"actions":     out.Story.Year(),
		"ended":       out.Story.Ended(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err := w.broadcaster.PublishRequestCompleted(ctx, req.StoryID, req.RequestID, result); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}
