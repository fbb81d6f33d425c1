package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/locolive/chat-engine/internal/domain"
)

// RedisDirectory is a read-through profile cache in front of a UserDirectory.
// Redis failures degrade to the wrapped directory; they are never returned.
type RedisDirectory struct {
	client *redis.Client
	next   domain.UserDirectory
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisDirectory(client *redis.Client, next domain.UserDirectory, prefix string, ttl time.Duration, logger *zap.Logger) *RedisDirectory {
	return &RedisDirectory{
		client: client,
		next:   next,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisDirectory) BuildKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:profile:%s", c.prefix, userID)
}

// ResolveMany implements domain.UserDirectory.
func (c *RedisDirectory) ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.Profile{}, nil
	}

	profiles, missing := c.getMany(ctx, ids)
	if len(missing) == 0 {
		return profiles, nil
	}

	loaded, err := c.next.ResolveMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range loaded {
		profiles[id] = p
	}
	c.setMany(ctx, loaded)

	return profiles, nil
}

// Invalidate drops cached profiles, e.g. after a profile update.
func (c *RedisDirectory) Invalidate(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.BuildKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisDirectory) getMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, []uuid.UUID) {
	profiles := make(map[uuid.UUID]domain.Profile, len(ids))

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.BuildKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Profile cache read failed", zap.Error(err))
		}
		return profiles, ids
	}

	var missing []uuid.UUID
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var p domain.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		profiles[ids[i]] = p
	}
	return profiles, missing
}

func (c *RedisDirectory) setMany(ctx context.Context, profiles map[uuid.UUID]domain.Profile) {
	if len(profiles) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for id, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.Set(ctx, c.BuildKey(id), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("Profile cache write failed", zap.Error(err))
	}
}
