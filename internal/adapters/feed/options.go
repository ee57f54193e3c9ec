package feed

import (
	"time"

	"github.com/okian/droprelay/pkg/logger"
)

// Default gateway configuration constants.
const (
	DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"
	// DefaultIntents is GUILDS | GUILD_MESSAGES | MESSAGE_CONTENT.
	DefaultIntents = 1<<0 | 1<<9 | 1<<15

	defaultReadLimit         = 1 << 20
	defaultHeartbeatInterval = 41250 * time.Millisecond
	defaultInitialBackoff    = time.Second
	defaultMaxBackoff        = time.Minute
)

// GatewayOption applies a configuration option to the GatewayListener.
type GatewayOption func(*GatewayListener)

// WithGatewayURL sets the websocket url to dial.
func WithGatewayURL(url string) GatewayOption {
	return func(g *GatewayListener) {
		if url != "" {
			g.url = url
		}
	}
}

// WithChannelID restricts forwarding to messages from one channel.
// An empty id forwards every channel.
func WithChannelID(id string) GatewayOption {
	return func(g *GatewayListener) {
		g.channelID = id
	}
}

// WithIntents overrides the gateway intents sent in IDENTIFY.
func WithIntents(intents int) GatewayOption {
	return func(g *GatewayListener) {
		if intents > 0 {
			g.intents = intents
		}
	}
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(initial, maxDelay time.Duration) GatewayOption {
	return func(g *GatewayListener) {
		if initial > 0 {
			g.initialBackoff = initial
		}
		if maxDelay > 0 {
			g.maxBackoff = maxDelay
		}
	}
}

// WithGatewayLogger sets a custom logger for the gateway listener.
func WithGatewayLogger(l logger.Logger) GatewayOption {
	return func(g *GatewayListener) {
		if l != nil {
			g.logger = l
		}
	}
}

// KafkaOption applies a configuration option to the KafkaListener.
type KafkaOption func(*KafkaListener)

// WithKafkaLogger sets a custom logger for the kafka listener.
func WithKafkaLogger(l logger.Logger) KafkaOption {
	return func(k *KafkaListener) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithKafkaChannelID restricts forwarding to records tagged with one channel.
func WithKafkaChannelID(id string) KafkaOption {
	return func(k *KafkaListener) {
		k.channelID = id
	}
}
