package geo

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"shiptrack/internal/model"
)

// redisKV is the part of the Redis client the cache needs.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// missing is cached for codes the source does not know.
const missing = "-"

// RedisCache is a read-through cache in front of another Source. Misses are
// cached too so unknown codes do not hit the source on every route build.
type RedisCache struct {
	rdb    redisKV
	next   Source
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb redisKV, next Source, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, next: next, ttl: ttl, prefix: "geo:loc:"}
}

// NewRedisCacheURL connects to url and wraps next.
func NewRedisCacheURL(url string, next Source, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCache(redis.NewClient(opt), next, ttl), nil
}

func (c *RedisCache) Lookup(ctx context.Context, code string) (model.Coordinate, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.Coordinate{}, false, nil
	}
	key := c.prefix + code
	// Redis errors other than a hit fall through to the source.
	if val, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if val == missing {
			return model.Coordinate{}, false, nil
		}
		var coord model.Coordinate
		if json.Unmarshal([]byte(val), &coord) == nil {
			return coord, true, nil
		}
	}

	coord, ok, err := c.next.Lookup(ctx, code)
	if err != nil {
		return model.Coordinate{}, false, err
	}
	stored := missing
	if ok {
		b, _ := json.Marshal(coord)
		stored = string(b)
	}
	_ = c.rdb.Set(ctx, key, stored, c.ttl).Err()
	return coord, ok, nil
}
