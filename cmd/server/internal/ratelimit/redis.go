package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiterStore is a fixed-window counter shared across replicas: the
// first request in a window seeds a key with the per-minute allowance and a
// 60s TTL, and every request decrements it.
type RedisLimiterStore struct {
	db         *redis.Client
	limiterKey string
	perMinute  int64
	failOpen   bool
}

type RedisLimiterConfig struct {
	RedisClient *redis.Client
	LimiterKey  string
	PerMinute   int64
	FailOpen    bool
}

func NewRedisLimitStore(config RedisLimiterConfig) *RedisLimiterStore {
	return &RedisLimiterStore{
		db:         config.RedisClient,
		limiterKey: config.LimiterKey,
		perMinute:  config.PerMinute,
		failOpen:   config.FailOpen,
	}
}

// Allow reports whether identifier has allowance left this window. Concurrent
// writers can let a few extra requests through; that is acceptable for an
// abuse brake, and redis outages defer to the failOpen policy.
func (store *RedisLimiterStore) Allow(identifier string) (bool, error) {
	ctx := context.Background()

	key := "clipcoach-ratelimit-" + store.limiterKey + "-" + identifier

	remainingStr, err := store.db.Get(ctx, key).Result()
	switch {
	case err == nil:
		remaining, err := strconv.Atoi(remainingStr)
		if err != nil {
			return store.failOpen, err
		}
		if remaining == 0 {
			return false, nil
		}
	case err == redis.Nil:
		store.db.Set(ctx, key, store.perMinute, 60*time.Second)
	default:
		return store.failOpen, err
	}

	store.db.Decr(ctx, key)

	return true, nil
}
