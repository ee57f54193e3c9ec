// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Feed kinds accepted by FeedKind.
const (
	FeedGateway = "gateway"
	FeedKafka   = "kafka"
	FeedNone    = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ServiceName and Version are reported by GET /.
	ServiceName string `koanf:"service_name"`
	Version     string `koanf:"version"`

	// CacheTTL is how long a drop stays visible after it is written.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// DedupeSize sets the capacity of the job id dedupe set.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreURL selects the slot backend; empty means in-process memory.
	StoreURL string `koanf:"store_url"`

	// StoreKey names the slot inside a network backend.
	StoreKey string `koanf:"store_key"`

	// StoreExpiry lets network backends delete the slot on their own.
	StoreExpiry time.Duration `koanf:"store_expiry"`

	CORSAllowOrigin string `koanf:"cors_allow_origin"`

	// FeedKind is one of gateway, kafka or none.
	FeedKind      string `koanf:"feed_kind"`
	FeedToken     string `koanf:"feed_token"`
	FeedChannelID string `koanf:"feed_channel_id"`
	GatewayURL    string `koanf:"gateway_url"`

	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroupID string   `koanf:"kafka_group_id"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":8080",
		ServiceName:     "Cloudy Sniper API",
		Version:         "3.0",
		CacheTTL:        10 * time.Second,
		DedupeSize:      1000,
		StoreKey:        "droprelay:latest",
		StoreExpiry:     time.Minute,
		CORSAllowOrigin: "*",
		FeedKind:        FeedGateway,
		FeedChannelID:   "1401775181025775738",
		GatewayURL:      "wss://gateway.discord.gg/?v=10&encoding=json",
		KafkaBrokers:    []string{"localhost:9092"},
		KafkaTopic:      "drops",
		KafkaGroupID:    "droprelay",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_ttl must be positive, got %s", ErrInvalidConfig, c.CacheTTL)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive, got %d", ErrInvalidConfig, c.DedupeSize)
	}

	switch c.FeedKind {
	case FeedGateway:
		if strings.TrimSpace(c.FeedToken) == "" {
			return fmt.Errorf("%w: feed_token (or DISCORD_TOKEN) is required for the gateway feed", ErrInvalidConfig)
		}
	case FeedKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("%w: kafka feed needs kafka_brokers and kafka_topic", ErrInvalidConfig)
		}
	case FeedNone:
	default:
		return fmt.Errorf("%w: unknown feed_kind %q", ErrInvalidConfig, c.FeedKind)
	}
	return nil
}
