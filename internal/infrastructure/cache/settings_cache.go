package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// Settings cache key prefixes
const (
	PacingSettingsPrefix      = "pacer:settings:pacing:"
	ConcurrencySettingsPrefix = "pacer:settings:concurrency:"
)

// DefaultSettingsTTL applies when the configured TTL is not positive.
const DefaultSettingsTTL = 5 * time.Minute

// SettingsStore is the durable settings backend the cache sits in front of.
type SettingsStore interface {
	GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error)
	PutPacingSettings(ctx context.Context, ownerID uuid.UUID, s pacing.PacingSettings) error
	GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error)
	PutConcurrencySettings(ctx context.Context, ownerID uuid.UUID, s pacing.ConcurrencySettings) error
	SetDialRate(ctx context.Context, ownerID uuid.UUID, expected, next int) (bool, error)
}

// SettingsCache is a read-through cache for per-owner settings. Redis
// failures are logged and fall through to the store; they never fail a call.
type SettingsCache struct {
	client *redis.Client
	store  SettingsStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSettingsCache wraps store with a redis cache.
func NewSettingsCache(client *redis.Client, store SettingsStore, ttl time.Duration, logger *zap.Logger) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsCache{client: client, store: store, ttl: ttl, logger: logger}
}

func (c *SettingsCache) GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error) {
	key := PacingSettingsPrefix + ownerID.String()

	var s pacing.PacingSettings
	if c.lookup(ctx, key, &s) {
		return s, nil
	}

	s, err := c.store.GetPacingSettings(ctx, ownerID)
	if err != nil {
		return s, err
	}
	c.fill(ctx, key, s)
	return s, nil
}

func (c *SettingsCache) PutPacingSettings(ctx context.Context, ownerID uuid.UUID, s pacing.PacingSettings) error {
	if err := c.store.PutPacingSettings(ctx, ownerID, s); err != nil {
		return err
	}
	c.invalidate(ctx, PacingSettingsPrefix+ownerID.String())
	return nil
}

func (c *SettingsCache) GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error) {
	key := ConcurrencySettingsPrefix + ownerID.String()

	var s pacing.ConcurrencySettings
	if c.lookup(ctx, key, &s) {
		return s, nil
	}

	s, err := c.store.GetConcurrencySettings(ctx, ownerID)
	if err != nil {
		return s, err
	}
	c.fill(ctx, key, s)
	return s, nil
}

func (c *SettingsCache) PutConcurrencySettings(ctx context.Context, ownerID uuid.UUID, s pacing.ConcurrencySettings) error {
	if err := c.store.PutConcurrencySettings(ctx, ownerID, s); err != nil {
		return err
	}
	c.invalidate(ctx, ConcurrencySettingsPrefix+ownerID.String())
	return nil
}

// SetDialRate forwards the compare-and-set to the store. The cached entry is
// dropped either way, since a lost race means it is stale.
func (c *SettingsCache) SetDialRate(ctx context.Context, ownerID uuid.UUID, expected, next int) (bool, error) {
	ok, err := c.store.SetDialRate(ctx, ownerID, expected, next)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx, ConcurrencySettingsPrefix+ownerID.String())
	return ok, nil
}

// lookup reports whether key was found and decoded into dest.
func (c *SettingsCache) lookup(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.logger.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("settings cache entry corrupt", zap.String("key", key), zap.Error(err))
		c.invalidate(ctx, key)
		return false
	}
	return true
}

func (c *SettingsCache) fill(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("settings cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("settings cache write failed",
			zap.String("key", key),
			zap.Duration("ttl", c.ttl),
			zap.Error(err))
	}
}

func (c *SettingsCache) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("settings cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
