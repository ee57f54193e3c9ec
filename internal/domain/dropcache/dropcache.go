// Package dropcache is the time-boxed single-slot view over a slot store.
// Expiry is lazy: a slot past its TTL is simply not returned.
package dropcache

import (
	"context"
	"time"

	"github.com/okian/droprelay/internal/adapters/repository"
	"github.com/okian/droprelay/internal/domain/model"
	"github.com/okian/droprelay/pkg/metrics"
)

// Snapshot describes the slot as seen at one instant.
type Snapshot struct {
	Event   model.DropEvent // zero unless Fresh
	Fresh   bool
	Present bool          // a slot exists, fresh or not
	Age     time.Duration // since the last write; zero when !Present
}

// Cache holds at most one live drop.
type Cache struct {
	store repository.Store
	ttl   time.Duration
	now   func() time.Time
}

// New builds a Cache over store.
func New(store repository.Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Backend names the underlying store.
func (c *Cache) Backend() string { return c.store.Backend() }

// Write replaces the slot with event, stamped with the cache clock.
func (c *Cache) Write(ctx context.Context, event model.DropEvent) error {
	writtenAt := c.now()
	start := time.Now()
	err := c.store.Write(ctx, repository.Slot{Event: event, WrittenAt: writtenAt})
	metrics.RecordStoreLatency(c.store.Backend(), "write", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(c.store.Backend(), "write")
		return err
	}
	metrics.UpdateLastDropTimestamp(float64(writtenAt.Unix()))
	return nil
}

// Read returns the drop when it was written no more than TTL before now.
func (c *Cache) Read(ctx context.Context, now time.Time) (model.DropEvent, bool, error) {
	s, err := c.Snapshot(ctx, now)
	if err != nil {
		return model.DropEvent{}, false, err
	}
	return s.Event, s.Fresh, nil
}

// Snapshot reads the slot once and reports its freshness and age at now.
func (c *Cache) Snapshot(ctx context.Context, now time.Time) (Snapshot, error) {
	start := time.Now()
	slot, ok, err := c.store.Read(ctx)
	metrics.RecordStoreLatency(c.store.Backend(), "read", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError(c.store.Backend(), "read")
		metrics.RecordCacheRead("error")
		return Snapshot{}, err
	}
	if !ok {
		metrics.RecordCacheRead("empty")
		return Snapshot{}, nil
	}

	age := now.Sub(slot.WrittenAt)
	if age < 0 {
		age = 0
	}
	if age > c.ttl {
		metrics.RecordCacheRead("stale")
		return Snapshot{Present: true, Age: age}, nil
	}
	metrics.RecordCacheRead("fresh")
	return Snapshot{Event: slot.Event, Fresh: true, Present: true, Age: age}, nil
}
