package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockPrefix = "reconcile:lock:"
	defaultLockTTL    = 30 * time.Second
	defaultLockRetry  = 50 * time.Millisecond
)

// ErrLockLost is returned by unlock when the lock expired before release
var ErrLockLost = errors.New("cache: lock expired before release")

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a keyed lock shared by every process using the same Redis.
// Each lock is a SETNX key with a TTL so a crashed holder cannot block the key forever.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	retry     time.Duration
	onLost    func(key string)
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithLockTTL sets how long a lock survives without release
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLockRetry sets the polling interval while waiting for a held key
func WithLockRetry(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockPrefix sets the key namespace
func WithLockPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// WithLockLostHandler is called when a lock had already expired at release
func WithLockLostHandler(fn func(key string)) RedisLockerOption {
	return func(l *RedisLocker) {
		l.onLost = fn
	}
}

// NewRedisLocker creates a locker on an existing client
func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:    client,
		keyPrefix: defaultLockPrefix,
		ttl:       defaultLockTTL,
		retry:     defaultLockRetry,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock polls SETNX until the key is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.unlock(redisKey, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlock(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if (err != nil || n == 0) && l.onLost != nil {
		l.onLost(redisKey)
	}
}
