package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names read by Load.
const (
	EnvPrefix     = "DROPRELAY_"
	EnvConfigFile = "DROPRELAY_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DROPRELAY_CONFIG is set
//  3. legacy hosting variables: PORT, DISCORD_TOKEN, REDIS_URL, DATABASE_URL
//  4. env (prefix DROPRELAY_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyKey), nil); err != nil {
		return nil, fmt.Errorf("%w: legacy env: %v", ErrLoadConfig, err)
	}

	// DROPRELAY_CACHE_TTL -> cache_ttl (flat keys, underscores preserved)
	envProvider := env.ProviderWithValue(EnvPrefix, ".", prefixedKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	cfg.FeedKind = strings.ToLower(strings.TrimSpace(cfg.FeedKind))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are split on commas when read from the environment.
var listKeys = map[string]bool{"kafka_brokers": true} //nolint:gochecknoglobals // fixed key set

func prefixedKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "CONFIG" {
		return "", nil
	}
	key = strings.ToLower(key)
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// legacyKey maps the variables common hosting platforms inject. An empty
// key makes koanf skip the variable.
func legacyKey(key, value string) (string, any) {
	switch key {
	case "PORT":
		if value == "" {
			return "", nil
		}
		return "addr", ":" + value
	case "DISCORD_TOKEN":
		return "feed_token", value
	case "REDIS_URL":
		return "store_url", value
	case "DATABASE_URL":
		if _, ok := os.LookupEnv("REDIS_URL"); ok {
			return "", nil
		}
		return "store_url", value
	}
	return "", nil
}
