package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/metrics"
)

// Tiered is the two-tier cache: a process-local TTL tier in front of the
// shared Redis tier. Every entry carries a TTL independent of invalidation
// messages, which bounds staleness even when an invalidation is lost.
type Tiered struct {
	keys   Keys
	local  *Local
	remote Remote

	defaultTTL time.Duration
	localTTL   time.Duration
}

type TieredConfig struct {
	Keys       Keys
	Local      *Local
	Remote     Remote
	DefaultTTL time.Duration // shared-tier TTL
	LocalTTL   time.Duration // local-tier TTL, usually much shorter
}

func NewTiered(cfg TieredConfig) *Tiered {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = 30 * time.Second
	}
	if cfg.Local == nil {
		cfg.Local = NewLocal(0)
	}
	return &Tiered{
		keys:       cfg.Keys,
		local:      cfg.Local,
		remote:     cfg.Remote,
		defaultTTL: cfg.DefaultTTL,
		localTTL:   cfg.LocalTTL,
	}
}

// Get checks the local tier, then the shared tier, promoting shared hits
// into the local tier. A shared-tier error degrades to a miss.
func (t *Tiered) Get(ctx context.Context, entityType, entityID string) ([]byte, bool) {
	key := t.keys.Key(entityType, entityID)

	if val, ok := t.local.Get(key); ok {
		metrics.CacheRequests.WithLabelValues("local", "hit").Inc()
		return val, true
	}
	metrics.CacheRequests.WithLabelValues("local", "miss").Inc()

	val, ok, err := t.remote.Get(ctx, key)
	if err != nil {
		logger.L().Warn("shared cache get failed", zap.String("key", key), zap.Error(err))
		metrics.CacheRequests.WithLabelValues("shared", "miss").Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues("shared", "miss").Inc()
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("shared", "hit").Inc()

	t.local.Set(key, val, t.localTTL)
	return val, true
}

// Put writes both tiers. ttl <= 0 uses the configured default.
func (t *Tiered) Put(ctx context.Context, entityType, entityID string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	key := t.keys.Key(entityType, entityID)

	t.local.Set(key, value, minDuration(ttl, t.localTTL))
	return t.remote.Set(ctx, key, value, ttl)
}

// Evict removes one entity from both tiers. Evicting an absent key is a
// no-op.
func (t *Tiered) Evict(ctx context.Context, entityType, entityID string) error {
	key := t.keys.Key(entityType, entityID)

	if n := t.local.Delete(key); n > 0 {
		metrics.CacheEvictions.Add(float64(n))
	}
	return t.remote.Del(ctx, key)
}

// EvictKeys removes a batch of entities of one type from both tiers.
func (t *Tiered) EvictKeys(ctx context.Context, entityType string, entityIDs ...string) error {
	if len(entityIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		keys = append(keys, t.keys.Key(entityType, id))
	}

	if n := t.local.Delete(keys...); n > 0 {
		metrics.CacheEvictions.Add(float64(n))
	}
	return t.remote.Del(ctx, keys...)
}

// EvictPattern removes every key of entityType matching a '*' glob from
// both tiers.
func (t *Tiered) EvictPattern(ctx context.Context, entityType, glob string) error {
	pattern := t.keys.Pattern(entityType, glob)

	if n := t.local.DeletePattern(pattern); n > 0 {
		metrics.CacheEvictions.Add(float64(n))
	}
	n, err := t.remote.DelPattern(ctx, pattern)
	if n > 0 {
		metrics.CacheEvictions.Add(float64(n))
	}
	return err
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
