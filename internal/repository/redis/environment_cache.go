package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flagsplit/domain"

	"github.com/redis/go-redis/v9"
)

const environmentKeyTTL = 60 * time.Second

// EnvironmentCache caches environment rows by API key. Every SDK request
// resolves its environment from the key header, so this sits on the hot path
// in front of Postgres.
type EnvironmentCache struct {
	client *redis.Client
}

func NewEnvironmentCache(client *redis.Client) *EnvironmentCache {
	return &EnvironmentCache{
		client: client,
	}
}

func cacheKey(apiKey string) string {
	return fmt.Sprintf("environment:apikey:%s", apiKey)
}

// GetByAPIKey returns the cached environment, or (nil, nil) on a miss.
func (c *EnvironmentCache) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Environment, error) {
	raw, err := c.client.Get(ctx, cacheKey(apiKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read environment from Redis: %w", err)
	}

	var env domain.Environment
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached environment: %w", err)
	}

	return &env, nil
}

func (c *EnvironmentCache) Set(ctx context.Context, env domain.Environment) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(env.APIKey), raw, environmentKeyTTL).Err(); err != nil {
		return fmt.Errorf("failed to store environment in Redis: %w", err)
	}

	return nil
}

// Invalidate drops the cached entry, used when an environment is updated.
func (c *EnvironmentCache) Invalidate(ctx context.Context, apiKey string) error {
	if err := c.client.Del(ctx, cacheKey(apiKey)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate environment cache: %w", err)
	}

	return nil
}
