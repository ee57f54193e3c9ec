// Package service wires the ingestion pipeline and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/droprelay/internal/adapters/feed"
	"github.com/okian/droprelay/internal/adapters/repository"
	"github.com/okian/droprelay/internal/domain/dedupe"
	"github.com/okian/droprelay/internal/domain/dropcache"
	"github.com/okian/droprelay/internal/domain/model"
	"github.com/okian/droprelay/internal/domain/parser"
	"github.com/okian/droprelay/internal/domain/types"
	"github.com/okian/droprelay/pkg/logger"
	"github.com/okian/droprelay/pkg/metrics"
)

// UpdateRequest is a manual drop submitted over HTTP.
type UpdateRequest struct {
	Job     string
	Name    string
	MS      float64
	Players string
}

// Service owns the dedupe set, the drop cache and the feed runner.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	cache    *dropcache.Cache
	deduper  dedupe.Deduper
	parser   *parser.Parser
	listener feed.Listener
	runner   *feed.Runner

	// Configuration
	ttl         time.Duration
	dedupeSize  int
	serviceName string
	version     string
	now         func() time.Time

	// State
	started   bool
	startedAt time.Time

	// feedState is written from the feed goroutine, so it has its own lock.
	stateMu   sync.RWMutex
	feedState feed.State

	logger logger.Logger
}

// New constructs a Service. Without options it keeps the slot in memory
// and listens to nothing.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		ttl:         dropcache.DefaultTTL,
		dedupeSize:  dedupe.DefaultMaxSize,
		serviceName: DefaultServiceName,
		version:     DefaultVersion,
		now:         time.Now,
		feedState:   feed.StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.listener == nil {
		s.listener = feed.NoopListener{}
	}

	cache, err := dropcache.New(s.store, dropcache.WithTTL(s.ttl), dropcache.WithClock(s.now))
	if err != nil {
		return nil, fmt.Errorf("build drop cache: %w", err)
	}
	s.cache = cache
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.parser = parser.New(parser.WithClock(s.now))
	s.startedAt = s.now()
	metrics.UpdateFeedState(string(s.feedState))

	return s, nil
}

// Start launches the feed listener in the background.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting drop relay...",
		logger.String("store", s.store.Backend()),
		logger.String("feed", s.listener.Name()),
		logger.Duration("ttl", s.ttl),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	s.runner = feed.NewRunner(s.listener, s.handleRecord, s.setFeedState, s.logger.Named("feed"))
	if err := s.runner.Start(ctx); err != nil {
		return fmt.Errorf("start feed: %w", err)
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "drop relay started")
	return nil
}

// Stop shuts the feed down and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping drop relay...")

	var errs []error
	if err := s.runner.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "drop relay stopped")
	return errors.Join(errs...)
}

// handleRecord adapts Ingest to the feed handler signature.
func (s *Service) handleRecord(ctx context.Context, rec model.Record) error {
	_, err := s.Ingest(ctx, rec)
	return err
}

// Ingest runs one raw record through parse, dedupe and cache write.
// accepted is true when the record became the new drop.
func (s *Service) Ingest(ctx context.Context, rec model.Record) (accepted bool, err error) {
	metrics.RecordRecordReceived()

	event, reason := s.parser.Parse(rec)
	if !reason.OK() {
		metrics.RecordRecordDiscarded(string(reason))
		s.logger.Debug(ctx, "record discarded",
			logger.String("reason", string(reason)),
			logger.String("channel", rec.ChannelID),
		)
		return false, nil
	}

	if !s.deduper.Accept(ctx, event.JobID) {
		metrics.RecordDropDuplicate()
		s.logger.Debug(ctx, "duplicate drop skipped", logger.String("job", event.JobID))
		return false, nil
	}
	metrics.UpdateDedupeSize(s.deduper.Size())

	if err := s.cache.Write(ctx, event); err != nil {
		// Let a replay of this drop through once the store recovers.
		s.deduper.Forget(ctx, event.JobID)
		metrics.UpdateDedupeSize(s.deduper.Size())
		metrics.RecordErrorByComponent("ingest", "store_write")
		s.logger.Error(ctx, "failed to store drop",
			logger.String("job", event.JobID),
			logger.Error(err),
		)
		return false, fmt.Errorf("ingest %s: %w", event.JobID, err)
	}

	metrics.RecordDropAccepted(event.MoneyPerSecond)
	s.logger.Info(ctx, "new drop",
		logger.String("name", event.Name),
		logger.Float64("ms", event.MoneyPerSecond),
		logger.String("players", event.Players),
		logger.String("job", event.JobID),
	)
	return true, nil
}

// Update writes a manual drop directly to the cache, bypassing dedupe.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (types.StoredDrop, error) {
	event, err := model.NewDropEvent(req.Job, req.Name, req.MS, req.Players, s.now())
	if err != nil {
		metrics.RecordManualUpdate("invalid")
		return types.StoredDrop{}, fmt.Errorf("%w: %w", ErrInvalidUpdate, err)
	}

	if err := s.cache.Write(ctx, event); err != nil {
		metrics.RecordManualUpdate("failed")
		s.logger.Error(ctx, "manual update failed", logger.String("job", event.JobID), logger.Error(err))
		return types.StoredDrop{}, fmt.Errorf("store manual update: %w", err)
	}

	metrics.RecordManualUpdate("ok")
	s.logger.Info(ctx, "manual drop",
		logger.String("name", event.Name),
		logger.Float64("ms", event.MoneyPerSecond),
		logger.String("job", event.JobID),
	)
	return types.StoredDrop{
		Drop:      types.DropFrom(event),
		Timestamp: float64(event.ObservedAt.UnixNano()) / float64(time.Second),
	}, nil
}

// Latest returns the fresh drop, or the zero Drop.
func (s *Service) Latest(ctx context.Context) (types.Drop, error) {
	event, ok, err := s.cache.Read(ctx, s.now())
	if err != nil {
		return types.Drop{}, err
	}
	if !ok {
		return types.Drop{}, nil
	}
	return types.DropFrom(event), nil
}

// Status reports feed connectivity and cache freshness.
func (s *Service) Status(ctx context.Context) (types.Status, error) {
	now := s.now()
	snap, err := s.cache.Snapshot(ctx, now)
	if err != nil {
		return types.Status{}, err
	}
	state := s.FeedState()
	return types.Status{
		DiscordConnected: state == feed.StateConnected,
		ConnectionStatus: string(state),
		ActiveDrop:       snap.Fresh,
		AgeSeconds:       snap.Age.Seconds(),
		ServerTime:       now.Format(time.RFC3339),
	}, nil
}

// Info describes the running service.
func (s *Service) Info() types.Info {
	s.mu.RLock()
	startedAt := s.startedAt
	s.mu.RUnlock()
	return types.Info{
		Status:        "online",
		Service:       s.serviceName,
		Version:       s.version,
		DiscordStatus: string(s.FeedState()),
		Uptime:        s.now().Sub(startedAt).Seconds(),
	}
}

// FeedState returns the last reported feed connection state.
func (s *Service) FeedState() feed.State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.feedState
}

func (s *Service) setFeedState(st feed.State) {
	s.stateMu.Lock()
	prev := s.feedState
	s.feedState = st
	s.stateMu.Unlock()

	metrics.UpdateFeedState(string(st))
	if prev != st {
		s.logger.Info(context.Background(), "feed state changed",
			logger.String("from", string(prev)),
			logger.String("to", string(st)),
		)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"started":       s.started,
		"store":         s.store.Backend(),
		"feed":          s.listener.Name(),
		"feedState":     string(s.FeedState()),
		"ttlSeconds":    s.ttl.Seconds(),
		"dedupeSize":    s.dedupeSize,
		"dedupeEntries": s.deduper.Size(),
	}
}
