package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "roomclean:lock:"

// releaseScript deletes the key only if this holder still owns it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// RedisLocker shares order locks between API replicas.
// A holder that dies is released by the key TTL.
type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	wait     time.Duration
	retry    time.Duration
	log      *zap.Logger
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		wait:     wait,
		retry:    25 * time.Millisecond,
		log:      log,
		newToken: uuid.NewString,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := l.newToken()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}
		if !time.Now().Add(l.retry).Before(deadline) {
			return nil, fmt.Errorf("%w: %s held elsewhere", ErrNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The request context may already be cancelled; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("redis lock release failed", zap.String("key", redisKey), zap.Error(err))
		}
	}
}
