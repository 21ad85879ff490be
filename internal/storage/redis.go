package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pstorage "github.com/jwebster45206/plotweaver/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultStoryTTL is how long an untouched story snapshot lives in Redis.
const DefaultStoryTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for stories
// and filesystem for static resources (openings, actions, atoms, hierarchies)
type RedisStorage struct {
	*FileStore
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ pstorage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, dataDir string, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultStoryTTL
	}

	return &RedisStorage{
		FileStore: NewFileStore(dataDir, logger),
		client:    redis.NewClient(ClientOptions(redisURL)),
		logger:    logger,
		ttl:       ttl,
	}
}

// ClientOptions parses a redis:// URL, falling back to treating the value as
// an address.
func ClientOptions(redisURL string) *redis.Options {
	if strings.Contains(redisURL, "://") {
		if opt, err := redis.ParseURL(redisURL); err == nil {
			return opt
		}
	}
	return &redis.Options{Addr: redisURL}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Client returns the underlying Redis client, shared with the step queue
// and the worker lock.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}
