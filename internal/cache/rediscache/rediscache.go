// Package rediscache implements export.IdempotencyCache (and a
// daily-budget spend counter that no other package reads) against Redis,
// the production backend for a multi-worker deployment where an
// in-process map can't be shared across nodes.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a *redis.Client as export.IdempotencyCache, using SET NX
// for the atomic set-if-absent the idempotent push relies on.
type Cache struct {
	Client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{Client: client}
}

func (c *Cache) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.Client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("rediscache: setnx %s: %w", key, err)
	}
	return ok, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rediscache: del %s: %w", key, err)
	}
	return nil
}

// IncrBudget atomically adds microsUSD to today's per-org AI spend
// counter (keyed by UTC date so it resets daily without a cron job)
// and returns the new total.
func (c *Cache) IncrBudget(ctx context.Context, orgID string, microsUSD int64) (int64, error) {
	key := budgetKey(orgID)
	total, err := c.Client.IncrBy(ctx, key, microsUSD).Result()
	if err != nil {
		return 0, fmt.Errorf("rediscache: incrby %s: %w", key, err)
	}
	if total == microsUSD {
		// first write of the day: set expiry so the key self-cleans.
		c.Client.Expire(ctx, key, 25*time.Hour)
	}
	return total, nil
}

func (c *Cache) TodaySpendMicros(ctx context.Context, orgID string) (int64, error) {
	v, err := c.Client.Get(ctx, budgetKey(orgID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rediscache: get %s: %w", budgetKey(orgID), err)
	}
	return v, nil
}

func budgetKey(orgID string) string {
	return "ai_budget:" + orgID + ":" + time.Now().UTC().Format("2006-01-02")
}
