package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StatsCache keeps per-user aggregate results warm between dashboard loads.
// Entries are short-lived and dropped eagerly on any mutating action, so a
// miss is always safe.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

const statsTTL = 5 * time.Minute

func NewStatsCache(client *redis.Client, log zerolog.Logger) *StatsCache {
	return &StatsCache{
		client: client,
		ttl:    statsTTL,
		log:    log,
	}
}

func UploadStatsKey(userID string) string {
	return fmt.Sprintf("stats:uploads:%s", userID)
}

func HistoryStatsKey(userID string) string {
	return fmt.Sprintf("stats:history:%s", userID)
}

// Get unmarshals a cached entry into out. Returns false on miss or any
// cache error; callers fall through to the database.
func (c *StatsCache) Get(ctx context.Context, key string, out any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("stats cache entry corrupt")
		return false
	}
	return true
}

func (c *StatsCache) Set(ctx context.Context, key string, val any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("stats cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}

// InvalidateUser drops every aggregate for the user. Called after create,
// delete and predict-save so dashboards never serve stale counts.
func (c *StatsCache) InvalidateUser(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, UploadStatsKey(userID), HistoryStatsKey(userID)).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("stats cache invalidate failed")
	}
}
