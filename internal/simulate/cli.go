package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/droprelay/pkg/logger"
)

// SetupLogging initializes the global logger. When logFile is set records
// go to both stdout and the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	if err := logger.InitWith(w, logger.FormatText); err != nil {
		return nil, err
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	return closer, nil
}

// ShowHelp prints usage information for drop-sim.
func ShowHelp() {
	os.Stdout.WriteString(`drop-sim
========

Submits synthetic drops to a running relay and checks what it serves back.

Usage:
  go run ./cmd/drop-sim [options]

Options:
  -url string
        Base URL of the relay (default "http://localhost:8080")
  -drops int
        Number of drops to submit (default 100)
  -workers int
        Number of concurrent submitters (default CPU cores)
  -timeout duration
        HTTP request timeout (default 10s)
  -ttl duration
        Freshness window the relay runs with (default 10s)
  -check-ttl
        Wait past the ttl and expect /latest to be empty
  -output string
        Write submitted drops to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Log every submission
  -help
        Show this help message

Examples:
  go run ./cmd/drop-sim -drops 500 -workers 16
  go run ./cmd/drop-sim -check-ttl -url http://localhost:9090
`)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
