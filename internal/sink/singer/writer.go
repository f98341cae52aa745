// Package singer emits records and state as Singer-protocol messages: one
// JSON object per line, RECORD messages for rows and STATE messages for
// bookmark snapshots. This is the tap's default destination and is what a
// downstream target process consumes on stdin.
package singer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"s3tap/internal/records"
	"s3tap/internal/sink"
	"s3tap/internal/state"
)

func init() {
	sink.Register("singer", func(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
		out := cfg.Out
		if out == nil {
			out = os.Stdout
		}
		return NewWriter(out), nil
	})
}

// Writer serializes Singer messages to a single stream.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer emitting to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(out)}
}

type recordMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Record        records.Record `json:"record"`
	TimeExtracted string         `json:"time_extracted"`
}

type stateMessage struct {
	Type  string       `json:"type"`
	Value *state.State `json:"value"`
}

// WriteRecord emits one RECORD message.
func (w *Writer) WriteRecord(ctx context.Context, table string, rec records.Record, extractedAt time.Time) error {
	msg := recordMessage{
		Type:          "RECORD",
		Stream:        table,
		Record:        rec,
		TimeExtracted: extractedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := w.enc.Encode(msg); err != nil {
		return fmt.Errorf("singer: write record for %q: %w", table, err)
	}
	return nil
}

// WriteState emits one STATE message carrying the full state value.
func (w *Writer) WriteState(ctx context.Context, st *state.State) error {
	if err := w.enc.Encode(stateMessage{Type: "STATE", Value: st}); err != nil {
		return fmt.Errorf("singer: write state: %w", err)
	}
	return nil
}

// Close is a no-op; the Writer does not own the underlying stream.
func (w *Writer) Close(ctx context.Context) error { return nil }
