package simulate

import "time"

// Runner defaults.
const (
	DefaultNumDrops = 100
	DefaultTimeout  = 10 * time.Second
	DefaultTTL      = 10 * time.Second

	// expiryMargin is added to the TTL before checking that /latest emptied.
	expiryMargin = time.Second

	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)
