package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/redis/go-redis/v9"
)

// Story operations (Redis-backed)

func storyKey(id uuid.UUID) string {
	return "story:" + id.String()
}

func (r *RedisStorage) SaveStory(ctx context.Context, st *story.Story) error {
	if st == nil {
		return errors.New("story cannot be nil")
	}
	st.UpdatedAt = time.Now()

	data, err := json.Marshal(st)
	if err != nil {
		r.logger.Error("Failed to marshal story", "story_id", st.ID, "error", err)
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	if err := r.client.Set(ctx, storyKey(st.ID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save story", "story_id", st.ID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadStory(ctx context.Context, id uuid.UUID) (*story.Story, error) {
	data, err := r.client.Get(ctx, storyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Story not found", "story_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var st story.Story
	if err := json.Unmarshal(data, &st); err != nil {
		r.logger.Error("Failed to unmarshal story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &st, nil
}

func (r *RedisStorage) DeleteStory(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, storyKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete story", "story_id", id, "error", err)
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}
