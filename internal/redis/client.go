package redis

import (
	"context"

	"github.com/go-redis/redis/v8"

	"sleep-analyzer/internal/config"
)

// Client aliases the driver client so callers import one redis package.
type Client = redis.Client

// NewClient builds a Redis client from the service config.
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifies the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the client.
func Close(client *redis.Client) error {
	return client.Close()
}
