package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ResponseCache keeps upstream responses as JSON in Redis. A nil cache, or
// one without a client, misses on every read and drops every write.
type ResponseCache struct {
	redis      RedisClient
	historyTTL time.Duration
	latestTTL  time.Duration
}

func NewResponseCache(client RedisClient, historyTTL, latestTTL time.Duration) *ResponseCache {
	return &ResponseCache{
		redis:      client,
		historyTTL: historyTTL,
		latestTTL:  latestTTL,
	}
}

// Enabled reports whether reads and writes reach Redis.
func (c *ResponseCache) Enabled() bool {
	return c != nil && c.redis != nil
}

func (c *ResponseCache) HistoryTTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.historyTTL
}

func (c *ResponseCache) LatestTTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.latestTTL
}

// GetJSON decodes the cached value for key into out. It reports false on a miss.
func (c *ResponseCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (c *ResponseCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, data, ttl).Err()
}

func BalanceHistoryKey(wallet, lookback string) string {
	return "history:balances:" + strings.ToLower(wallet) + ":" + lookback
}

func PriceHistoryKey(asset, lookback string) string {
	return "history:prices:" + asset + ":" + lookback
}

func LatestPriceKey(asset string) string {
	return "price:latest:" + asset
}
