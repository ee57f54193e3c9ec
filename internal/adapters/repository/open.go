package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open builds the store named by rawURL:
//
//	""  or memory://                     in-process slot
//	redis://host:port/db, rediss://...   single redis key
//	dynamodb://table?region=&endpoint=   single DynamoDB item
//	postgres://..., postgresql://...     single row in drop_slot
func Open(ctx context.Context, rawURL string, opts ...Option) (Store, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return NewMemoryStore(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedStore, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return NewMemoryStore(), nil
	case "redis", "rediss":
		client, err := NewRedisClient(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, opts...), nil
	case "dynamodb":
		client, table, err := NewDynamoClient(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return NewDynamoStore(client, table, opts...), nil
	case "postgres", "postgresql":
		pool, err := NewPostgresPool(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(pool, pool.Close, opts...)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedStore, u.Scheme)
	}
}
