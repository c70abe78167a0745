package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// Compile-time check
var _ interfaces.StoryCache = (*redisStoryCache)(nil)

type redisStoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStoryCache caches assembled stories in Redis under story:{id} with
// the given TTL. A cache miss is reported as models.ErrNotFound.
func NewRedisStoryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.StoryCache {
	return &redisStoryCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisStoryCache"),
	}
}

func storyCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("story:%s", id)
}

func (c *redisStoryCache) Get(ctx context.Context, id uuid.UUID) (*models.StoryDetails, error) {
	key := storyCacheKey(id)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		c.logger.Error("Failed to get story from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get story from cache: %w", err)
	}

	details := &models.StoryDetails{}
	if err := json.Unmarshal(data, details); err != nil {
		// Corrupted entry, drop it so the next read goes to the database.
		c.logger.Warn("Corrupted cache entry, invalidating", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		return nil, models.ErrNotFound
	}

	c.logger.Debug("Story cache hit", zap.String("key", key))
	return details, nil
}

func (c *redisStoryCache) Set(ctx context.Context, details *models.StoryDetails) error {
	key := storyCacheKey(details.ID)
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal story for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to set story in cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set story in cache: %w", err)
	}
	c.logger.Debug("Story cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *redisStoryCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	key := storyCacheKey(id)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to invalidate cached story", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to invalidate cached story: %w", err)
	}
	c.logger.Debug("Story cache invalidated", zap.String("key", key))
	return nil
}
