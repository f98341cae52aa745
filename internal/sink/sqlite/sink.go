// Package sqlite implements a SQLite-backed sink using database/sql. It
// mirrors the postgres sink's layout (a landing table keyed by
// (table_name, record_hash) and a one-row state table) with INSERT OR
// IGNORE standing in for ON CONFLICT DO NOTHING.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3

	"s3tap/internal/records"
	"s3tap/internal/sink"
	"s3tap/internal/state"
)

const defaultTable = "s3tap_records"

func init() {
	sink.Register("sqlite", func(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
		return New(ctx, cfg.DSN, cfg.Table)
	})
}

// Sink is a SQLite-backed record/state destination.
type Sink struct {
	db    *sql.DB
	table string
}

// New opens a SQLite connection using the provided DSN and ensures the
// landing tables exist.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:tap.db?cache=shared"
//	"tap.db"
func New(ctx context.Context, dsn, table string) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if table == "" {
		table = defaultTable
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Sink{db: db, table: table}
	if err := s.ensureTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureTables(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			table_name   TEXT NOT NULL,
			record_hash  TEXT NOT NULL,
			record       TEXT NOT NULL,
			extracted_at TEXT NOT NULL,
			PRIMARY KEY (table_name, record_hash)
		)`, s.table),
		`CREATE TABLE IF NOT EXISTS s3tap_state (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			state      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: ensure tables: %w", err)
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
		return fmt.Errorf("sqlite: marshal record for %q: %w", table, err)
	}

	q := fmt.Sprintf(
		`INSERT OR IGNORE INTO %q (table_name, record_hash, record, extracted_at) VALUES (?, ?, ?, ?)`,
		s.table,
	)
	if _, err := s.db.ExecContext(ctx, q, table, hash, string(payload), extractedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite: insert record for %q: %w", table, err)
	}
	return nil
}

// WriteState upserts the full state snapshot.
func (s *Sink) WriteState(ctx context.Context, st *state.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("sqlite: marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO s3tap_state (id, state, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: write state: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Sink) Close(ctx context.Context) error {
	return s.db.Close()
}
