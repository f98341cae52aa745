// Package postgres implements a Postgres sink using pgx v5. Records land in
// a single jsonb table keyed by (table_name, record_hash); state snapshots
// are upserted into a one-row companion table.
//
// The hash conflict key makes retries after a mid-file failure safe: the
// sync layer re-reads a partially processed file from the start, and rows
// already landed hit ON CONFLICT DO NOTHING instead of duplicating.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"s3tap/internal/records"
	"s3tap/internal/sink"
	"s3tap/internal/state"
)

const defaultTable = "s3tap_records"

func init() {
	sink.Register("postgres", func(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
		return New(ctx, cfg.DSN, cfg.Table)
	})
}

// Sink is a Postgres-backed record/state destination.
type Sink struct {
	pool  *pgxpool.Pool
	table string
}

// New connects via pgxpool and ensures the landing tables exist.
func New(ctx context.Context, dsn, table string) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if table == "" {
		table = defaultTable
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}

	s := &Sink{pool: pool, table: table}
	if err := s.ensureTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureTables(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			table_name   text        NOT NULL,
			record_hash  text        NOT NULL,
			record       jsonb       NOT NULL,
			extracted_at timestamptz NOT NULL,
			PRIMARY KEY (table_name, record_hash)
		)`, pgIdent(s.table)),
		`CREATE TABLE IF NOT EXISTS s3tap_state (
			id         int         PRIMARY KEY,
			state      jsonb       NOT NULL,
			updated_at timestamptz NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: ensure tables: %w", err)
		}
	}
	return nil
}

// WriteRecord inserts one record; duplicates (same table and hash) are
// ignored.
func (s *Sink) WriteRecord(ctx context.Context, table string, rec records.Record, extractedAt time.Time) error {
	hash, err := sink.RecordHash(table, rec)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres: marshal record for %q: %w", table, err)
	}

	q := fmt.Sprintf(
		`INSERT INTO %s (table_name, record_hash, record, extracted_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (table_name, record_hash) DO NOTHING`,
		pgIdent(s.table),
	)
	if _, err := s.pool.Exec(ctx, q, table, hash, payload, extractedAt.UTC()); err != nil {
		return fmt.Errorf("postgres: insert record for %q: %w", table, err)
	}
	return nil
}

// WriteState upserts the full state snapshot.
func (s *Sink) WriteState(ctx context.Context, st *state.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("postgres: marshal state: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO s3tap_state (id, state, updated_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: write state: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// pgIdent quotes an identifier, doubling embedded quotes.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
