package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore is the shared tier backed by go-redis. Reads and writes carry a
// short internal timeout so a slow Redis degrades to memory-only behavior
// instead of eating the scan budget.
type RedisStore struct {
	client *redis.Client
}

const redisOpTimeout = 500 * time.Millisecond

// NewRedisStore connects the shared tier to the given address
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}
	return val, true
}

// GetWithTTL returns the value together with its remaining server-side TTL.
// Keys stored without an expiry report a TTL of one promotionTTL.
func (r *RedisStore) GetWithTTL(key string) ([]byte, time.Duration, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, 0, false
	}
	val, err := getCmd.Bytes()
	if err != nil {
		return nil, 0, false
	}
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = promotionTTL
	}
	return val, ttl, true
}

func (r *RedisStore) Set(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Close releases the underlying connection pool
func (r *RedisStore) Close() error { return r.client.Close() }
