package datadog

import (
	"sort"
	"testing"

	"s3tap/internal/metrics"
)

// TestNewBackend exercises construction, including the option-based
// namespace and global-tag configuration.
func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing address returns error",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "address only",
			cfg:  Config{Addr: "127.0.0.1:8125"},
		},
		{
			name: "namespace and global tags applied via options",
			cfg: Config{
				Addr:       "127.0.0.1:8125",
				Namespace:  "s3tap.",
				GlobalTags: []string{"env:test", "service:s3tap"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewBackend(%+v) error = nil, want non-nil", tt.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend(%+v) error = %v", tt.cfg, err)
			}
			if b.client == nil {
				t.Fatalf("backend client is nil")
			}

			// The client must accept traffic without panicking; UDP needs no
			// listener on the other end.
			b.IncCounter("s3tap_rows_total", 3, metrics.Labels{"table": "users", "kind": "synced"})
			b.ObserveHistogram("s3tap_step_duration_seconds", 0.5, metrics.Labels{"table": "users"})
			if err := b.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
		})
	}
}

// TestBackendNilClient ensures a zero-value Backend is a safe no-op.
func TestBackendNilClient(t *testing.T) {
	b := &Backend{}
	b.IncCounter("s3tap_rows_total", 1, metrics.Labels{"table": "t"})
	b.ObserveHistogram("s3tap_step_duration_seconds", 1, metrics.Labels{"table": "t"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestLabelsToTags(t *testing.T) {
	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}

	got := labelsToTags(metrics.Labels{"table": "users", "kind": "synced"})
	sort.Strings(got)
	want := []string{"kind:synced", "table:users"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
}
