// internal/notify/prefs/cache.go
package prefs

import (
	"context"
	"encoding/json"
	"time"

	"formative-notifications/internal/common/database"
	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/models"
)

const cacheKeyPrefix = "notify:prefs:"

// CachedStore is a redis read-through cache in front of Store. The cache is an
// optimization only: any redis failure is logged and falls through to
// postgres, and Update invalidates before returning.
type CachedStore struct {
	store  *Store
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(store *Store, redis *database.RedisClient, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		store:  store,
		redis:  redis,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "prefs-cache"}),
	}
}

func (c *CachedStore) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	key := cacheKeyPrefix + userID

	if raw, err := c.redis.Get(ctx, key); err == nil {
		var p models.NotificationPreferences
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		c.logger.Warn("corrupt cached preferences, falling back to store", map[string]interface{}{
			"userId": userID,
		})
	}

	p, err := c.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := c.redis.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("failed to cache preferences", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}

	return p, nil
}

func (c *CachedStore) Update(ctx context.Context, userID string, changes map[string]interface{}) error {
	if err := c.store.Update(ctx, userID, changes); err != nil {
		return err
	}

	if err := c.redis.Delete(ctx, cacheKeyPrefix+userID); err != nil {
		c.logger.Warn("failed to invalidate cached preferences", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	return nil
}
