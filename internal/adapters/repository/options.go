package repository

import "time"

// Default store configuration constants.
const (
	DefaultKey = "droprelay:latest"
	// defaultExpiryHint lets backends drop stale slots on their own.
	defaultExpiryHint = time.Minute
)

type options struct {
	key    string
	expiry time.Duration
}

// Option applies a configuration option to a network-backed store.
type Option func(*options)

// WithKey sets the key (redis key, DynamoDB partition key, postgres row id) of the slot.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// WithExpiryHint sets how long a backend may keep the slot before deleting it.
// Freshness is still decided by the cache TTL at read time.
func WithExpiryHint(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.expiry = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{key: DefaultKey, expiry: defaultExpiryHint}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
