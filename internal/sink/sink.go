// Package sink contains destination-agnostic contracts for emitting records
// and persisting sync state, plus a small factory/registry so backends can
// be selected by configuration.
//
// Concrete backends live in subpackages (singer, postgres, sqlite) and
// register themselves via init; importing sink/all (even blank) makes every
// built-in backend available at runtime.
package sink

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"s3tap/internal/records"
	"s3tap/internal/state"
)

// Sink receives records as they are produced and persists state snapshots.
//
// WriteRecord is called once per row, unbatched; backends that want batching
// must buffer internally and flush in Close. WriteState must persist the
// full state before returning; the sync layer relies on write-through
// semantics for resumability.
type Sink interface {
	WriteRecord(ctx context.Context, table string, rec records.Record, extractedAt time.Time) error
	WriteState(ctx context.Context, st *state.State) error
	Close(ctx context.Context) error
}

// Config carries backend selection plus the union of backend options.
type Config struct {
	// Kind selects the registered backend ("singer", "postgres", "sqlite").
	Kind string

	// DSN is the connection string for database backends.
	DSN string

	// Table is the landing table name for database backends; backends apply
	// their own default when empty.
	Table string

	// Out is the destination stream for the singer backend; defaults to
	// os.Stdout when nil.
	Out io.Writer
}

// Factory constructs a backend from its configuration.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register installs (or replaces) the factory for kind. It is intended to be
// called from backend init functions.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// New builds the sink for cfg.Kind, defaulting to "singer" when the kind is
// empty. Unregistered kinds return an error naming the known kinds.
func New(ctx context.Context, cfg Config) (Sink, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "singer"
	}
	mu.RLock()
	fn, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sink: unsupported kind %q (registered: %v)", kind, ListKinds())
	}
	return fn(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
