package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/droprelay/internal/adapters/feed"
	"github.com/okian/droprelay/internal/adapters/http/api"
	"github.com/okian/droprelay/internal/adapters/repository"
	service "github.com/okian/droprelay/internal/app"
	"github.com/okian/droprelay/internal/config"
	"github.com/okian/droprelay/pkg/logger"
	"github.com/okian/droprelay/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "droprelay exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the relay together and blocks until ctx is cancelled or the HTTP server fails.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	handler := api.NewServer(svc, api.WithAllowOrigin(cfg.CORSAllowOrigin)).Handler(ctx)
	srv := newHTTPServer(cfg.Addr, handler)

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server starting",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreURL),
			logger.String("feed", cfg.FeedKind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service stop failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "shutdown complete")
	return runErr
}

// buildService opens the slot store, builds the feed listener and assembles the service.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	store, err := repository.Open(ctx, cfg.StoreURL,
		repository.WithKey(cfg.StoreKey),
		repository.WithExpiryHint(cfg.StoreExpiry),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	listener, err := buildListener(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := service.New(
		service.WithStore(store),
		service.WithListener(listener),
		service.WithTTL(cfg.CacheTTL),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithServiceInfo(cfg.ServiceName, cfg.Version),
		service.WithLogger(log),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// buildListener picks the feed source named by cfg.FeedKind.
func buildListener(cfg *config.Config, log logger.Logger) (feed.Listener, error) {
	switch cfg.FeedKind {
	case config.FeedGateway:
		gw, err := feed.NewGatewayListener(cfg.FeedToken,
			feed.WithGatewayURL(cfg.GatewayURL),
			feed.WithChannelID(cfg.FeedChannelID),
			feed.WithGatewayLogger(log.Named("gateway")),
		)
		if err != nil {
			return nil, fmt.Errorf("create gateway listener: %w", err)
		}
		return gw, nil
	case config.FeedKafka:
		reader := feed.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		return feed.NewKafkaListener(reader,
			feed.WithKafkaChannelID(cfg.FeedChannelID),
			feed.WithKafkaLogger(log.Named("kafka")),
		), nil
	case config.FeedNone, "":
		return feed.NoopListener{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown feed kind %q", config.ErrInvalidConfig, cfg.FeedKind)
	}
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes gauges that only change on ingest so they stay current after restarts.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if entries, ok := stats["dedupeEntries"].(int64); ok {
		metrics.UpdateDedupeSize(entries)
	}
	if state, ok := stats["feedState"].(string); ok {
		metrics.UpdateFeedState(state)
	}
}
