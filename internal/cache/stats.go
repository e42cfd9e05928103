// Package cache provides a Redis-backed cache for per-owner task statistics.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/taskkeeper/internal/model"
)

// StatsCache stores computed stats per owner. Misses are (zero, false, nil).
//
// Writers read Version before computing and pass it to Set. Invalidate bumps
// the version, so a Set computed from counts older than the last mutation is
// dropped.
type StatsCache interface {
	Get(ctx context.Context, owner uuid.UUID) (model.TaskStats, bool, error)
	Version(ctx context.Context, owner uuid.UUID) (int64, error)
	Set(ctx context.Context, owner uuid.UUID, ver int64, s model.TaskStats) error
	Invalidate(ctx context.Context, owner uuid.UUID) error
}

// versionTTL keeps idle owners' version keys from piling up. Expiry resets
// the version to zero, which can only make a pending Set miss.
const versionTTL = 24 * time.Hour

// Redis implements StatsCache with a stats key and a version key per owner.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Keys are prefix + owner id.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (c *Redis) key(owner uuid.UUID) string    { return c.prefix + owner.String() }
func (c *Redis) verKey(owner uuid.UUID) string { return c.prefix + "ver:" + owner.String() }

// Get returns the cached stats for owner.
func (c *Redis) Get(ctx context.Context, owner uuid.UUID) (model.TaskStats, bool, error) {
	data, err := c.client.Get(ctx, c.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.TaskStats{}, false, nil
	}
	if err != nil {
		return model.TaskStats{}, false, fmt.Errorf("stats cache get: %w", err)
	}
	var s model.TaskStats
	if err := json.Unmarshal(data, &s); err != nil {
		return model.TaskStats{}, false, fmt.Errorf("stats cache decode: %w", err)
	}
	return s, true, nil
}

// Version returns the owner's current invalidation counter. A missing key is 0.
func (c *Redis) Version(ctx context.Context, owner uuid.UUID) (int64, error) {
	v, err := c.client.Get(ctx, c.verKey(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stats cache version: %w", err)
	}
	return v, nil
}

// Set stores stats for owner with the configured TTL, but only while the
// owner's version still equals ver. A lost race is not an error.
func (c *Redis) Set(ctx context.Context, owner uuid.UUID, ver int64, s model.TaskStats) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	vk := c.verKey(owner)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != ver {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key(owner), data, c.ttl)
			return nil
		})
		return err
	}, vk)
	switch {
	case err == nil, errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("stats cache set: %w", err)
	}
}

var errStale = errors.New("stats cache: version moved")

// Invalidate bumps the owner's version and drops the entry in one transaction.
func (c *Redis) Invalidate(ctx context.Context, owner uuid.UUID) error {
	vk := c.verKey(owner)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, vk)
		p.Expire(ctx, vk, versionTTL)
		p.Del(ctx, c.key(owner))
		return nil
	})
	if err != nil {
		return fmt.Errorf("stats cache invalidate: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *Redis) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (model.TaskStats, bool, error) {
	return model.TaskStats{}, false, nil
}
func (Nop) Version(context.Context, uuid.UUID) (int64, error)             { return 0, nil }
func (Nop) Set(context.Context, uuid.UUID, int64, model.TaskStats) error { return nil }
func (Nop) Invalidate(context.Context, uuid.UUID) error                  { return nil }
