package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/droprelay/internal/simulate"
)

const defaultRunTimeout = 5 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the relay")
		numDrops   = flag.Int("drops", simulate.DefaultNumDrops, "Number of drops to submit")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		ttl        = flag.Duration("ttl", simulate.DefaultTTL, "Freshness window the relay runs with")
		checkTTL   = flag.Bool("check-ttl", false, "Wait past the ttl and expect /latest to be empty")
		outputFile = flag.String("output", "", "Write submitted drops to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every submission")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:    *baseURL,
		NumDrops:   *numDrops,
		Workers:    *workers,
		Timeout:    *timeout,
		TTL:        *ttl,
		CheckTTL:   *checkTTL,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}
