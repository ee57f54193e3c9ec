package feed

import "errors"

// Sentinel errors for feed listeners.
var (
	ErrNilHandler    = errors.New("feed: nil handler")
	ErrMissingToken  = errors.New("feed: gateway token is required")
	ErrFeedClosed    = errors.New("feed: connection closed by server")
	ErrNotRunning    = errors.New("feed: runner not started")
	ErrAlreadyActive = errors.New("feed: runner already started")
)
