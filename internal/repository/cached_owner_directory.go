package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/meal-tickets/internal/domain"
)

const (
	ownerIDKeyPrefix    = "owner:id:"
	ownerEmailKeyPrefix = "owner:email:"
)

// CachedOwnerDirectoryDependencies groups the decorator collaborators.
type CachedOwnerDirectoryDependencies struct {
	Next   OwnerDirectory
	Redis  redis.Cmdable
	TTL    time.Duration
	Logger *zap.Logger
}

type cachedOwnerDirectory struct {
	next   OwnerDirectory
	redis  redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOwnerDirectory caches owner records in Redis in front of deps.Next.
// Misses are not cached; Redis failures degrade to the wrapped directory.
func NewCachedOwnerDirectory(deps CachedOwnerDirectoryDependencies) OwnerDirectory {
	if deps.Redis == nil || deps.TTL <= 0 {
		return deps.Next
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedOwnerDirectory{next: deps.Next, redis: deps.Redis, ttl: deps.TTL, logger: logger}
}

func (c *cachedOwnerDirectory) FindByID(ctx context.Context, id string) (domain.Owner, error) {
	return c.lookup(ctx, ownerIDKeyPrefix+id, func() (domain.Owner, error) {
		return c.next.FindByID(ctx, id)
	})
}

func (c *cachedOwnerDirectory) FindByEmail(ctx context.Context, email string) (domain.Owner, error) {
	key := ownerEmailKeyPrefix + strings.ToLower(strings.TrimSpace(email))
	return c.lookup(ctx, key, func() (domain.Owner, error) {
		return c.next.FindByEmail(ctx, email)
	})
}

func (c *cachedOwnerDirectory) lookup(ctx context.Context, key string, load func() (domain.Owner, error)) (domain.Owner, error) {
	raw, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var owner domain.Owner
		if jsonErr := json.Unmarshal([]byte(raw), &owner); jsonErr == nil {
			return owner, nil
		}
		c.logger.Warn("discarding corrupt owner cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("owner cache read failed", zap.String("key", key), zap.Error(err))
	}

	owner, err := load()
	if err != nil {
		return domain.Owner{}, err
	}

	payload, err := json.Marshal(owner)
	if err != nil {
		return owner, nil
	}
	if err := c.redis.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		c.logger.Warn("owner cache write failed", zap.String("key", key), zap.Error(err))
	}
	return owner, nil
}
