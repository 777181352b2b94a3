package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hungrytum/franchise-billing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker is a keyed lock
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Coordination bundles the lock and de-duplication backends
type Coordination struct {
	Locker      Locker
	Idempotency IdempotencyStore
	client      *redis.Client
}

// Close releases the backends
func (c *Coordination) Close() error {
	if c.Idempotency != nil {
		_ = c.Idempotency.Close()
	}
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Factory creates coordination backends based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory backends when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InMemory returns process-local backends
func (f *Factory) InMemory() *Coordination {
	return &Coordination{
		Locker:      NewMemoryLocker(),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}

// Redis connects to Redis and returns shared backends
func (f *Factory) Redis(ctx context.Context) (*Coordination, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger := f.logger
	return &Coordination{
		Locker: NewRedisLocker(client,
			WithLockTTL(f.redisConfig.LockTTL),
			WithLockLostHandler(func(key string) {
				logger.Warn("Reconciliation lock expired before release", zap.String("key", key))
			}),
		),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		client:      client,
	}, nil
}

// Create uses Redis when it is enabled and reachable, otherwise falls back to
// in-memory backends if allowed.
func (f *Factory) Create(ctx context.Context) (*Coordination, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory locks")
		return f.InMemory(), nil
	}
	c, err := f.Redis(ctx)
	if err == nil {
		f.logger.Info("Using Redis locks", zap.String("host", f.redisConfig.Host))
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for locking but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory locks. "+
		"Concurrent uploads on different instances are not serialised.",
		zap.Error(err),
	)
	return f.InMemory(), nil
}
