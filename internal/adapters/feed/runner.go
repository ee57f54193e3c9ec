package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/droprelay/pkg/logger"
)

// Runner drives a Listener in a background goroutine with explicit Start and Stop.
type Runner struct {
	listener Listener
	handler  Handler
	onState  StateFunc
	logger   logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewRunner creates a runner. onState may be nil.
func NewRunner(l Listener, handler Handler, onState StateFunc, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Get().Named("feed")
	}
	return &Runner{listener: l, handler: handler, onState: onState, logger: log}
}

// Start launches the listener in the background. Canceling ctx also stops it.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return ErrAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		r.logger.Info(runCtx, "feed listener started", logger.String("kind", r.listener.Name()))
		err := r.listener.Listen(runCtx, r.handler, r.onState)
		if err != nil {
			r.logger.Error(runCtx, "feed listener stopped", logger.Error(err))
		}
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}()
	return nil
}

// Stop cancels the listener and waits for it or for ctx.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "feed shutdown timed out")
		return fmt.Errorf("feed shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when the listener returns.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the listener's terminal error, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
