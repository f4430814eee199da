package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"teams-message-relay-go/internal/config"
)

const (
	dedupKeyPrefix   = "dedup:msg:"
	activeSessionKey = "extraction:active"
	statsSummaryKey  = "stats:summary"
)

// Cache wraps the redis client used for dedup markers, the advisory
// active-session pointer, and cached read aggregates. Everything here is
// best-effort: callers must treat failures as non-fatal, the store's
// uniqueness constraint is the authority.
type Cache struct {
	client *redis.Client
}

// New creates a Cache from redis configuration
func New(cfg config.RedisConfig) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client}
}

// Ping checks connectivity for health reporting
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// CheckAndSet sets a presence marker for the message id if absent. It
// returns true when the marker was newly set (the id has not been seen
// within the TTL window).
func (c *Cache) CheckAndSet(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	set, err := c.client.SetNX(ctx, dedupKeyPrefix+messageID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup marker: %w", err)
	}
	return set, nil
}

// ClearMarker removes a presence marker. Used when the write behind the
// marker rolled back, so the record stays retryable.
func (c *Cache) ClearMarker(ctx context.Context, messageID string) error {
	if err := c.client.Del(ctx, dedupKeyPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("failed to clear dedup marker: %w", err)
	}
	return nil
}

// SetActiveSession stores the advisory active-session pointer with a TTL
func (c *Cache) SetActiveSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, activeSessionKey, sessionID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set active session pointer: %w", err)
	}
	return nil
}

// ActiveSession returns the advisory pointer, or "" when none is set
func (c *Cache) ActiveSession(ctx context.Context) (string, error) {
	id, err := c.client.Get(ctx, activeSessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active session pointer: %w", err)
	}
	return id, nil
}

// ClearActiveSession removes the advisory pointer
func (c *Cache) ClearActiveSession(ctx context.Context) error {
	if err := c.client.Del(ctx, activeSessionKey).Err(); err != nil {
		return fmt.Errorf("failed to clear active session pointer: %w", err)
	}
	return nil
}

// StatsSummary returns the cached stats payload, or nil on a miss
func (c *Cache) StatsSummary(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, statsSummaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}
	return data, nil
}

// SetStatsSummary caches the stats payload
func (c *Cache) SetStatsSummary(ctx context.Context, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, statsSummaryKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}

// InvalidateStats drops cached read aggregates after a successful ingest
func (c *Cache) InvalidateStats(ctx context.Context) error {
	if err := c.client.Del(ctx, statsSummaryKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats cache: %w", err)
	}
	return nil
}

// Close closes the underlying redis client
func (c *Cache) Close() error {
	return c.client.Close()
}
