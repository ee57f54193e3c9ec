package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAPI is the subset of the go-redis client used by RedisStore.
type RedisAPI interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// RedisStore keeps the slot as one JSON value under a single key.
type RedisStore struct {
	client RedisAPI
	opts   options
}

// NewRedisClient parses a redis:// or rediss:// url and verifies the server with PING.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	ro, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %v", ErrStoreUnavailable, err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client RedisAPI, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: buildOptions(opts)}
}

// Write stores the slot with the configured expiry hint.
func (s *RedisStore) Write(ctx context.Context, slot Slot) error {
	data, err := encodeSlot(slot)
	if err != nil {
		return fmt.Errorf("encode slot: %w", err)
	}
	if err := s.client.Set(ctx, s.opts.key, data, s.opts.expiry).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrStoreUnavailable, s.opts.key, err)
	}
	return nil
}

// Read fetches and decodes the slot. A missing key is an empty slot.
func (s *RedisStore) Read(ctx context.Context) (Slot, bool, error) {
	data, err := s.client.Get(ctx, s.opts.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Slot{}, false, nil
	}
	if err != nil {
		return Slot{}, false, fmt.Errorf("%w: redis get %s: %v", ErrStoreUnavailable, s.opts.key, err)
	}
	slot, err := decodeSlot(data)
	if err != nil {
		return Slot{}, false, err
	}
	return slot, true, nil
}

// Backend implements Store.
func (s *RedisStore) Backend() string { return "redis" }

// Close releases the client.
func (s *RedisStore) Close() error { return s.client.Close() }
