// Package simulate drives a running relay over HTTP: it submits synthetic
// drops through POST /update and checks what /latest and /status report.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the relay
	NumDrops   int           // Number of drops to submit
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	TTL        time.Duration // Freshness window the relay was started with
	CheckTTL   bool          // Wait past the TTL and expect /latest to empty
	OutputFile string        // Optional JSON file for submitted drops
	Verbose    bool          // Log every submission
}

// Drop is the body sent to POST /update.
type Drop struct {
	Job     string  `json:"job"`
	Name    string  `json:"name"`
	MS      float64 `json:"ms"`
	Players string  `json:"players"`
}

// Stats holds run statistics.
type Stats struct {
	DropsGenerated int
	DropsSubmitted int
	DropsAccepted  int
	DropsRejected  int
	DropsFailed    int
	FreshVerified  bool
	ExpiryVerified bool
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
