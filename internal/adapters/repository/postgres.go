package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgCreateTable = `
		CREATE TABLE IF NOT EXISTS drop_slot (
			slot_key   TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			written_at TIMESTAMPTZ NOT NULL
		)
	`
	pgUpsertSlot = `
		INSERT INTO drop_slot (slot_key, payload, written_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (slot_key) DO UPDATE
		SET payload = EXCLUDED.payload, written_at = EXCLUDED.written_at
	`
	pgSelectSlot = `
		SELECT payload FROM drop_slot WHERE slot_key = $1
	`
)

// PgxAPI is the subset of pgxpool.Pool used by PostgresStore.
type PgxAPI interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the slot as one row upserted in a single statement.
type PostgresStore struct {
	db    PgxAPI
	opts  options
	close func()
}

// NewPostgresPool connects to a postgres:// url and pings the server.
func NewPostgresPool(ctx context.Context, rawURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %v", ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", ErrStoreUnavailable, err)
	}
	return pool, nil
}

// NewPostgresStore wraps an existing connection. closeFn may be nil.
func NewPostgresStore(db PgxAPI, closeFn func(), opts ...Option) *PostgresStore {
	return &PostgresStore{db: db, opts: buildOptions(opts), close: closeFn}
}

// Migrate creates the slot table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgCreateTable); err != nil {
		return fmt.Errorf("create drop_slot table: %w", err)
	}
	return nil
}

// Write upserts the slot row.
func (s *PostgresStore) Write(ctx context.Context, slot Slot) error {
	data, err := encodeSlot(slot)
	if err != nil {
		return fmt.Errorf("encode slot: %w", err)
	}
	if _, err := s.db.Exec(ctx, pgUpsertSlot, s.opts.key, string(data), slot.WrittenAt); err != nil {
		return fmt.Errorf("%w: upsert slot: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Read selects the slot row. No row is an empty slot.
func (s *PostgresStore) Read(ctx context.Context) (Slot, bool, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, pgSelectSlot, s.opts.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Slot{}, false, nil
	}
	if err != nil {
		return Slot{}, false, fmt.Errorf("%w: select slot: %v", ErrStoreUnavailable, err)
	}
	slot, err := decodeSlot(payload)
	if err != nil {
		return Slot{}, false, err
	}
	return slot, true, nil
}

// Backend implements Store.
func (s *PostgresStore) Backend() string { return "postgres" }

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
