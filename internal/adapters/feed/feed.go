// Package feed delivers raw records from an external message feed.
//
// A Listener calls its handler synchronously, one record at a time in
// arrival order. Nothing is queued between the feed and the handler.
package feed

import (
	"context"

	"github.com/okian/droprelay/internal/domain/model"
)

// State is the connection state of a listener.
type State string

// Connection states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Handler consumes one record. A returned error is logged by the
// listener and does not stop the feed.
type Handler func(ctx context.Context, rec model.Record) error

// StateFunc observes connection state changes.
type StateFunc func(State)

// Listener is a feed source.
type Listener interface {
	// Name identifies the feed kind, e.g. "gateway".
	Name() string

	// Listen runs until ctx is canceled or the feed fails for good,
	// reporting connection changes to onState.
	Listen(ctx context.Context, handler Handler, onState StateFunc) error
}

// NoopListener never delivers anything. It is used when the feed is disabled.
type NoopListener struct{}

// Name implements Listener.
func (NoopListener) Name() string { return "none" }

// Listen blocks until ctx is canceled.
func (NoopListener) Listen(ctx context.Context, _ Handler, onState StateFunc) error {
	notify(onState, StateDisconnected)
	<-ctx.Done()
	return nil
}

// ChannelListener forwards records from a channel. It backs tests and
// in-process producers.
type ChannelListener struct {
	Records <-chan model.Record
}

// Name implements Listener.
func (ChannelListener) Name() string { return "channel" }

// Listen forwards records until the channel closes or ctx is canceled.
func (l ChannelListener) Listen(ctx context.Context, handler Handler, onState StateFunc) error {
	if handler == nil {
		return ErrNilHandler
	}
	notify(onState, StateConnected)
	defer notify(onState, StateDisconnected)

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-l.Records:
			if !ok {
				return nil
			}
			_ = handler(ctx, rec)
		}
	}
}

func notify(fn StateFunc, s State) {
	if fn != nil {
		fn(s)
	}
}
