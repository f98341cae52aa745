package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"s3tap/internal/records"
	"s3tap/internal/state"
)

// TestSink_RecordRoundTrip lands records in an in-memory database and checks
// the duplicate-suppression key.
func TestSink_RecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, ":memory:", "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close(ctx)

	now := time.Now().UTC()
	rec := records.Record{"id": int64(1), "name": "ann"}

	if err := s.WriteRecord(ctx, "users", rec, now); err != nil {
		t.Fatalf("WriteRecord error: %v", err)
	}
	// Same record again: ignored by the hash key.
	if err := s.WriteRecord(ctx, "users", rec, now.Add(time.Minute)); err != nil {
		t.Fatalf("WriteRecord (dup) error: %v", err)
	}
	// Different record: lands.
	if err := s.WriteRecord(ctx, "users", records.Record{"id": int64(2)}, now); err != nil {
		t.Fatalf("WriteRecord error: %v", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "s3tap_records"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("row count = %d, want 2", n)
	}
}

// TestSink_StateUpsert keeps exactly one state row across writes.
func TestSink_StateUpsert(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, ":memory:", "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close(ctx)

	st := state.New()
	st.WriteBookmark("users", state.ModifiedSince, "2023-01-15T00:00:00Z")
	if err := s.WriteState(ctx, st); err != nil {
		t.Fatalf("WriteState error: %v", err)
	}
	st.WriteBookmark("users", state.ModifiedSince, "2023-02-01T00:00:00Z")
	if err := s.WriteState(ctx, st); err != nil {
		t.Fatalf("WriteState error: %v", err)
	}

	var n int
	var payload string
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM s3tap_state`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("state rows = %d, want 1", n)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT state FROM s3tap_state WHERE id = 1`).Scan(&payload); err != nil {
		t.Fatalf("select state: %v", err)
	}
	if want := "2023-02-01T00:00:00Z"; !strings.Contains(payload, want) {
		t.Fatalf("state payload %q missing %q", payload, want)
	}
}

