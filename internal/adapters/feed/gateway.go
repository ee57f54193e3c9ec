package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/okian/droprelay/internal/domain/model"
	"github.com/okian/droprelay/pkg/logger"
	"github.com/okian/droprelay/pkg/metrics"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Close codes after which reconnecting cannot help.
const (
	closeAuthFailed        websocket.StatusCode = 4004
	closeInvalidIntents    websocket.StatusCode = 4013
	closeDisallowedIntents websocket.StatusCode = 4014
)

// ErrAuthFailed is returned by Listen when the gateway rejects the session for good.
var ErrAuthFailed = errors.New("feed: gateway rejected credentials or intents")

var errReconnectRequested = errors.New("feed: gateway requested reconnect")

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type outgoingPayload struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type messageCreate struct {
	ChannelID string `json:"channel_id"`
	Embeds    []struct {
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
	} `json:"embeds"`
}

// GatewayListener receives embed messages over a Discord-style gateway websocket.
type GatewayListener struct {
	token          string
	url            string
	channelID      string
	intents        int
	readLimit      int64
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         logger.Logger
}

// NewGatewayListener creates a listener authenticating with token.
func NewGatewayListener(token string, opts ...GatewayOption) (*GatewayListener, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	g := &GatewayListener{
		token:          token,
		url:            DefaultGatewayURL,
		intents:        DefaultIntents,
		readLimit:      defaultReadLimit,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		logger:         logger.Get().Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Name implements Listener.
func (g *GatewayListener) Name() string { return "gateway" }

// Listen keeps a gateway session open, reconnecting with exponential
// backoff, until ctx is canceled or the credentials are rejected.
func (g *GatewayListener) Listen(ctx context.Context, handler Handler, onState StateFunc) error {
	if handler == nil {
		return ErrNilHandler
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.initialBackoff
	b.MaxInterval = g.maxBackoff
	b.MaxElapsedTime = 0

	for {
		notify(onState, StateConnecting)
		ready, err := g.session(ctx, handler, onState)
		if ctx.Err() != nil {
			notify(onState, StateDisconnected)
			return nil
		}
		notify(onState, StateError)
		if errors.Is(err, ErrAuthFailed) {
			g.logger.Error(ctx, "gateway session rejected", logger.Error(err))
			metrics.RecordErrorByComponent("feed", "auth_failed")
			return err
		}
		if ready {
			b.Reset()
		}

		delay := b.NextBackOff()
		g.logger.Warn(ctx, "gateway session ended, reconnecting",
			logger.Error(err),
			logger.Duration("delay", delay),
		)
		metrics.RecordFeedReconnect()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			notify(onState, StateDisconnected)
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection. ready reports whether READY was received.
func (g *GatewayListener) session(ctx context.Context, handler Handler, onState StateFunc) (ready bool, err error) {
	conn, _, err := websocket.Dial(ctx, g.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(g.readLimit)

	var hello gatewayPayload
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		return false, classify("read hello", err)
	}
	if hello.Op != opHello {
		return false, fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var hd helloData
	_ = json.Unmarshal(hello.D, &hd)
	interval := time.Duration(hd.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}

	sessCtx, cancel := context.WithCancel(ctx)
	var seq atomic.Int64
	seq.Store(-1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.heartbeat(sessCtx, cancel, conn, interval, &seq)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if err := wsjson.Write(sessCtx, conn, outgoingPayload{Op: opIdentify, D: identifyData{
		Token:   g.token,
		Intents: g.intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "droprelay",
			Device:  "droprelay",
		},
	}}); err != nil {
		return false, classify("send identify", err)
	}

	for {
		var p gatewayPayload
		if err := wsjson.Read(sessCtx, conn, &p); err != nil {
			return ready, classify("read", err)
		}
		if p.S != nil {
			seq.Store(*p.S)
		}

		switch p.Op {
		case opDispatch:
			switch p.T {
			case "READY":
				ready = true
				notify(onState, StateConnected)
				g.logger.Info(ctx, "gateway session ready", logger.String("channel", g.channelID))
			case "MESSAGE_CREATE":
				g.dispatchMessage(sessCtx, p.D, handler)
			}
		case opHeartbeat:
			if err := sendHeartbeat(sessCtx, conn, &seq); err != nil {
				return ready, classify("send heartbeat", err)
			}
		case opReconnect:
			_ = conn.Close(websocket.StatusNormalClosure, "reconnect")
			return ready, errReconnectRequested
		case opInvalidSession:
			return ready, errors.New("feed: gateway invalidated the session")
		case opHeartbeatAck:
		}
	}
}

func (g *GatewayListener) heartbeat(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, interval time.Duration, seq *atomic.Int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sendHeartbeat(ctx, conn, seq); err != nil {
				if ctx.Err() == nil {
					g.logger.Warn(ctx, "heartbeat failed", logger.Error(err))
				}
				cancel()
				return
			}
		}
	}
}

func sendHeartbeat(ctx context.Context, conn *websocket.Conn, seq *atomic.Int64) error {
	var d any
	if s := seq.Load(); s >= 0 {
		d = s
	}
	return wsjson.Write(ctx, conn, outgoingPayload{Op: opHeartbeat, D: d})
}

// dispatchMessage turns the first embed of a channel message into a Record.
func (g *GatewayListener) dispatchMessage(ctx context.Context, raw json.RawMessage, handler Handler) {
	var m messageCreate
	if err := json.Unmarshal(raw, &m); err != nil {
		g.logger.Debug(ctx, "undecodable message", logger.Error(err))
		return
	}
	if g.channelID != "" && m.ChannelID != g.channelID {
		return
	}
	if len(m.Embeds) == 0 {
		return
	}

	rec := model.Record{Source: g.Name(), ChannelID: m.ChannelID}
	for _, f := range m.Embeds[0].Fields {
		rec.Fields = append(rec.Fields, model.Field{Name: f.Name, Value: f.Value})
	}
	if err := handler(ctx, rec); err != nil {
		g.logger.Error(ctx, "record handler failed", logger.Error(err))
	}
}

func classify(op string, err error) error {
	switch websocket.CloseStatus(err) {
	case closeAuthFailed, closeInvalidIntents, closeDisallowedIntents:
		return fmt.Errorf("%s: %w: %v", op, ErrAuthFailed, err)
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return fmt.Errorf("%s: %w", op, ErrFeedClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}
