// Package cache holds the optional Redis read cache for per-day result lists.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/drawcast/internal/drawday"
)

const (
	keyPrefix     = "drawcast:results:day:"
	versionPrefix = "drawcast:results:gen:"
	epochKey      = "drawcast:results:epoch"
)

// setIfCurrent writes KEYS[1] only when the day generation (KEYS[2]) and
// the purge epoch (KEYS[3]) still match the token read before the query.
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
local epoch = redis.call('GET', KEYS[3]) or '0'
if gen .. ':' .. epoch ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Open parses rawURL, connects and pings.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// DayCache implements drawday.DayCache on Redis. Every Redis failure is
// logged and treated as a miss; the database stays the source of truth.
type DayCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewDayCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *DayCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DayCache{client: client, ttl: ttl, logger: logger}
}

func (c *DayCache) Get(ctx context.Context, gameDay string) ([]drawday.Result, bool) {
	data, err := c.client.Get(ctx, keyPrefix+gameDay).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("results cache get failed", "game_day", gameDay, "error", err)
		return nil, false
	}
	var results []drawday.Result
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Warn("results cache entry corrupt", "game_day", gameDay, "error", err)
		return nil, false
	}
	return results, true
}

// Version returns "<day generation>:<purge epoch>", or "" when Redis is
// unreachable.
func (c *DayCache) Version(ctx context.Context, gameDay string) string {
	vals, err := c.client.MGet(ctx, versionPrefix+gameDay, epochKey).Result()
	if err != nil {
		c.logger.Warn("results cache version failed", "game_day", gameDay, "error", err)
		return ""
	}
	return counter(vals[0]) + ":" + counter(vals[1])
}

func counter(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

// Set caches results unless gameDay was invalidated or the cache purged
// since version was read.
func (c *DayCache) Set(ctx context.Context, gameDay, version string, results []drawday.Result) {
	if version == "" {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	keys := []string{keyPrefix + gameDay, versionPrefix + gameDay, epochKey}
	stored, err := setIfCurrent.Run(ctx, c.client, keys, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn("results cache set failed", "game_day", gameDay, "error", err)
		return
	}
	if stored == 0 {
		c.logger.Debug("results cache set skipped, day changed during read", "game_day", gameDay)
	}
}

// Invalidate bumps the day generation and drops the cached listing.
func (c *DayCache) Invalidate(ctx context.Context, gameDay string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionPrefix+gameDay)
		pipe.Del(ctx, keyPrefix+gameDay)
		return nil
	})
	if err != nil {
		c.logger.Warn("results cache invalidate failed", "game_day", gameDay, "error", err)
	}
}

// Purge bumps the epoch, which outdates every version handed out so far,
// then drops every cached day.
func (c *DayCache) Purge(ctx context.Context) {
	if err := c.client.Incr(ctx, epochKey).Err(); err != nil {
		c.logger.Warn("results cache epoch bump failed", "error", err)
	}
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("results cache scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("results cache purge failed", "error", err)
	}
}

// Check satisfies health.Checker.
func (c *DayCache) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
