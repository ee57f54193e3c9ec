package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/droprelay/internal/domain/types"
	"github.com/okian/droprelay/pkg/logger"
)

// Submission outcomes.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// client wraps http.Client with the relay's base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(cfg *Config) *client {
	return &client{http: &http.Client{Timeout: cfg.Timeout}, baseURL: cfg.BaseURL}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// getJSON performs a GET and decodes a 200 response into v.
func (c *client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	var body map[string]string
	if err := c.getJSON(ctx, "/health", &body); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if body["status"] != "healthy" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, body["status"])
	}
	return nil
}

func (c *client) latest(ctx context.Context) (types.Drop, error) {
	var d types.Drop
	err := c.getJSON(ctx, "/latest", &d)
	return d, err
}

func (c *client) status(ctx context.Context) (types.Status, error) {
	var s types.Status
	err := c.getJSON(ctx, "/status", &s)
	return s, err
}

// update posts one drop and classifies the response.
func (c *client) update(ctx context.Context, d Drop) string {
	resp, err := c.do(ctx, http.MethodPost, "/update", d)
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return resultAccepted
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return resultRejected
	default:
		return resultFailed
	}
}

// submitDrops posts drops concurrently using a worker pool.
func submitDrops(ctx context.Context, cfg *Config, c *client, drops []Drop, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting drops", logger.Int("drops", len(drops)), logger.Int("workers", cfg.Workers))

	var accepted, rejected, failed, submitted atomic.Int64

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	dropChan := make(chan Drop, workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range dropChan {
				if ctx.Err() != nil {
					continue
				}
				result := c.update(ctx, d)
				submitted.Add(1)
				switch result {
				case resultAccepted:
					accepted.Add(1)
				case resultRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "drop submitted", logger.String("job", d.Job), logger.String("result", result))
				}
			}
		}()
	}

send:
	for _, d := range drops {
		select {
		case <-ctx.Done():
			break send
		case dropChan <- d:
		}
	}
	close(dropChan)
	wg.Wait()

	stats.DropsSubmitted = int(submitted.Load())
	stats.DropsAccepted = int(accepted.Load())
	stats.DropsRejected = int(rejected.Load())
	stats.DropsFailed = int(failed.Load())

	log.Info(ctx, "drop submission completed",
		logger.Int("accepted", stats.DropsAccepted),
		logger.Int("rejected", stats.DropsRejected),
		logger.Int("failed", stats.DropsFailed),
	)
}
