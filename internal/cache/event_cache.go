// Package cache keeps a Redis read-through copy of event rows. Events are
// immutable after creation, so entries are never invalidated, only expired.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

const keyPrefix = "ticketing:event:"

// EventStore is the durable source of events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// EventCache serves GetByID from Redis and falls back to the store. Redis
// errors are logged and never returned.
type EventCache struct {
	store EventStore
	rdb   redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
}

// NewEventCache wraps store with a Redis cache.
func NewEventCache(store EventStore, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *EventCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EventCache{store: store, rdb: rdb, ttl: ttl, log: log}
}

// Create stores the event and warms its cache entry.
func (c *EventCache) Create(ctx context.Context, e *model.Event) error {
	if err := c.store.Create(ctx, e); err != nil {
		return err
	}
	c.set(ctx, e)
	return nil
}

// List always reads the store; the listing changes whenever an event is added.
func (c *EventCache) List(ctx context.Context) ([]model.Event, error) {
	return c.store.List(ctx)
}

// GetByID returns the event from Redis when present, otherwise from the store.
func (c *EventCache) GetByID(ctx context.Context, id string) (*model.Event, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var e model.Event
		jsonErr := json.Unmarshal(raw, &e)
		if jsonErr == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return &e, nil
		}
		c.log.Warn("discarding undecodable cached event", zap.String("event_id", id), zap.Error(jsonErr))
	case errors.Is(err, redis.Nil):
	default:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.log.Warn("event cache read failed", zap.String("event_id", id), zap.Error(err))
	}

	metrics.CacheRequests.WithLabelValues("miss").Inc()
	e, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, e)
	return e, nil
}

func (c *EventCache) set(ctx context.Context, e *model.Event) {
	raw, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("encoding event for cache", zap.String("event_id", e.ID), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key(e.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("event cache write failed", zap.String("event_id", e.ID), zap.Error(err))
	}
}

func key(id string) string {
	return keyPrefix + id
}
