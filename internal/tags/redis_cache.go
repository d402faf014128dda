package tags

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// RedisCache keeps team tag templates as JSON under a per-team key.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache builds a cache over client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "tags:team:"}
}

func (c *RedisCache) Get(ctx context.Context, teamID string) ([]domain.TeamTag, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+teamID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var templates []domain.TeamTag
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, false, err
	}
	return templates, true, nil
}

func (c *RedisCache) Set(ctx context.Context, teamID string, templates []domain.TeamTag, ttl time.Duration) error {
	raw, err := json.Marshal(templates)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+teamID, raw, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, teamID string) error {
	return c.client.Del(ctx, c.prefix+teamID).Err()
}
