package sentiment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedSource wraps a Source with a Redis cache. News feeds change
// slowly, so per-symbol scores are reused across scheduler cycles for the
// configured TTL. Redis failures fall through to the underlying source.
type CachedSource struct {
	inner Source
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedSource wraps inner with cache-aside reads against rdb.
func NewCachedSource(inner Source, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedSource {
	return &CachedSource{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(symbol string) string {
	return "sentiment:" + symbol
}

func (c *CachedSource) GetSentiment(ctx context.Context, symbol string) (Score, error) {
	key := cacheKey(symbol)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var score Score
		if err := json.Unmarshal(raw, &score); err == nil {
			return score, nil
		}
		// Corrupt entry, drop it and refetch.
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Msg("sentiment cache read failed")
	}

	score, err := c.inner.GetSentiment(ctx, symbol)
	if err != nil {
		return Score{}, err
	}

	if raw, err := json.Marshal(score); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("sentiment cache write failed")
		}
	}
	return score, nil
}
