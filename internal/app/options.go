package service

import (
	"time"

	"github.com/okian/droprelay/internal/adapters/feed"
	"github.com/okian/droprelay/internal/adapters/repository"
	"github.com/okian/droprelay/pkg/logger"
)

// Default service configuration constants.
const (
	DefaultServiceName = "Cloudy Sniper API"
	DefaultVersion     = "3.0"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the slot store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithListener sets the feed listener started by Start.
func WithListener(l feed.Listener) Option {
	return func(s *Service) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithTTL sets how long a written drop stays visible.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithDedupeSize sets the capacity of the dedupe set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock sets the clock used for stamping and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithServiceInfo sets the name and version reported by the root endpoint.
func WithServiceInfo(name, version string) Option {
	return func(s *Service) {
		if name != "" {
			s.serviceName = name
		}
		if version != "" {
			s.version = version
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
