package simulate

import "errors"

var (
	ErrUnhealthy      = errors.New("relay is not healthy")
	ErrLatestMismatch = errors.New("latest drop does not match the last submission")
	ErrNotExpired     = errors.New("latest drop still visible after ttl")
	ErrNoDrops        = errors.New("no drops to submit")
)
