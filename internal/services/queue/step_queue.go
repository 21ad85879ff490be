package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/plotweaver/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// RequestsKey is the Redis list holding pending step requests.
const RequestsKey = "step-requests"

// StepQueue is the global FIFO of story step requests shared by the api
// and the workers.
type StepQueue struct {
	client *Client
}

func NewStepQueue(client *Client) *StepQueue {
	return &StepQueue{
		client: client,
	}
}

// EnqueueRequest adds a request to the end of the queue
func (q *StepQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	if err := q.client.rdb.RPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	q.client.logger.Debug("Enqueued step request",
		"request_id", req.RequestID,
		"story_id", req.StoryID.String(),
		"type", req.Type)
	return nil
}

// DequeueRequest removes and returns the next request from the queue
// Returns nil if queue is empty
func (q *StepQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Queue is empty
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest blocks until a request is available or timeout
// elapses. A timeout returns nil, nil.
func (q *StepQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// RequestQueueDepth returns the number of requests in the queue
func (q *StepQueue) RequestQueueDepth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, RequestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}

// Clear drops every pending request
func (q *StepQueue) Clear(ctx context.Context) error {
	if err := q.client.rdb.Del(ctx, RequestsKey).Err(); err != nil {
		return fmt.Errorf("failed to clear request queue: %w", err)
	}
	return nil
}
