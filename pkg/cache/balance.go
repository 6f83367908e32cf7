// Package cache puts a Redis time-to-live cache in front of balance views.
//
// Entries expire by TTL only. Nothing invalidates them when the ledger
// changes, so a cached balance may be up to one TTL window stale.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// Options configures the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a Redis client and checks it with a ping.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		PoolSize:        20,
		MinIdleConns:    2,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// BalanceCache stores computed balances in Redis.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewBalanceCache creates a BalanceCache. A non-positive ttl uses
// DefaultTTL; a nil logger uses slog.Default().
func NewBalanceCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *BalanceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceCache{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Key formats the cache key of a balance in the current time bucket.
func (c *BalanceCache) Key(kind ledger.Kind, q ledger.Query) string {
	bucket := c.now().UnixNano() / int64(c.ttl)
	asOf := "-"
	if !q.AsOf.IsZero() {
		asOf = q.AsOf.Format("2006-01-02")
	}
	return fmt.Sprintf("balance:v1:%s:%s:%s:%s:%d", kind, q.EntityRef, q.Scope, asOf, bucket)
}

// Wrap returns a Balancer that serves next's balances from the cache.
func (c *BalanceCache) Wrap(kind ledger.Kind, next ledger.Balancer) ledger.Balancer {
	return &cachedBalancer{cache: c, kind: kind, next: next}
}

type cachedBalancer struct {
	cache *BalanceCache
	kind  ledger.Kind
	next  ledger.Balancer
}

// ComputeBalance returns the cached balance or computes and stores it.
// Redis failures fall through to the ledger; ledger failures are never
// cached.
func (b *cachedBalancer) ComputeBalance(ctx context.Context, q ledger.Query) (decimal.Decimal, error) {
	key := b.cache.Key(b.kind, q)

	cached, err := b.cache.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if balance, perr := decimal.NewFromString(cached); perr == nil {
			return balance, nil
		}
		b.cache.logger.Warn("discarding unreadable cached balance", "key", key)
	case !errors.Is(err, redis.Nil):
		b.cache.logger.Warn("balance cache read failed", "key", key, "error", err)
	}

	balance, err := b.next.ComputeBalance(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}

	if err := b.cache.client.Set(ctx, key, balance.String(), b.cache.ttl).Err(); err != nil {
		b.cache.logger.Warn("balance cache write failed", "key", key, "error", err)
	}

	return balance, nil
}
