package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/droprelay/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting drop simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("drops", cfg.NumDrops),
		logger.Int("workers", cfg.Workers),
		logger.Duration("ttl", cfg.TTL),
		logger.Bool("checkTTL", cfg.CheckTTL),
	)

	c := newClient(cfg)
	if err := c.health(ctx); err != nil {
		return stats, err
	}

	drops, err := generateDrops(ctx, cfg.NumDrops, stats)
	if err != nil {
		return stats, fmt.Errorf("drop generation failed: %w", err)
	}

	submitDrops(ctx, cfg, c, drops, stats)

	// Concurrent submissions land in any order, so finish with one known drop.
	marker := generateDrop()
	if result := c.update(ctx, marker); result != resultAccepted {
		return stats, fmt.Errorf("marker drop %s: %s", marker.Job, result)
	}
	drops = append(drops, marker)

	if err := verifyFresh(ctx, c, marker); err != nil {
		return stats, err
	}
	stats.FreshVerified = true

	if cfg.CheckTTL {
		wait := cfg.TTL + expiryMargin
		log.Info(ctx, "waiting for the drop to expire", logger.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(wait):
		}
		if err := verifyExpired(ctx, c); err != nil {
			return stats, err
		}
		stats.ExpiryVerified = true
	}

	if cfg.OutputFile != "" {
		if err := saveDrops(cfg.OutputFile, drops); err != nil {
			log.Warn(ctx, "failed to save drops to file", logger.Error(err))
		} else {
			log.Info(ctx, "drops saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// saveDrops writes the submitted drops as an indented JSON array.
func saveDrops(filename string, drops []Drop) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(drops, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drops: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, dropsPerSecond float64
	if stats.DropsSubmitted > 0 {
		acceptRate = float64(stats.DropsAccepted) / float64(stats.DropsSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		dropsPerSecond = float64(stats.DropsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("dropsGenerated", stats.DropsGenerated),
		logger.Int("dropsSubmitted", stats.DropsSubmitted),
		logger.Int("dropsAccepted", stats.DropsAccepted),
		logger.Int("dropsRejected", stats.DropsRejected),
		logger.Int("dropsFailed", stats.DropsFailed),
		logger.Bool("freshVerified", stats.FreshVerified),
		logger.Bool("expiryVerified", stats.ExpiryVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("dropsPerSecond", dropsPerSecond),
	)
}
