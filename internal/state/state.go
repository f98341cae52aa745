// Package state holds the tap's incremental sync position: a mutable mapping
// from table name to named bookmarks. The orchestrator is the single writer;
// the value is constructed by the caller, threaded through the sync
// explicitly, and persisted through the sink after each update. It is never
// ambient/global state.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ModifiedSince is the bookmark key used by the file-watermark sync.
const ModifiedSince = "modified_since"

// State is the JSON-serializable sync position.
type State struct {
	Bookmarks map[string]map[string]any `json:"bookmarks,omitempty"`
}

// New returns an empty state.
func New() *State {
	return &State{Bookmarks: make(map[string]map[string]any)}
}

// Load reads a state file. A missing file yields an empty state, so first
// runs need no bootstrap step.
func Load(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}
	st := New()
	if err := json.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	if st.Bookmarks == nil {
		st.Bookmarks = make(map[string]map[string]any)
	}
	return st, nil
}

// GetBookmark returns the named bookmark for table, if present.
func (s *State) GetBookmark(table, key string) (any, bool) {
	tb, ok := s.Bookmarks[table]
	if !ok {
		return nil, false
	}
	v, ok := tb[key]
	return v, ok
}

// GetBookmarkString returns the bookmark as a string; absent or non-string
// bookmarks yield "".
func (s *State) GetBookmarkString(table, key string) string {
	v, ok := s.GetBookmark(table, key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// WriteBookmark sets the named bookmark for table.
func (s *State) WriteBookmark(table, key string, value any) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]any)
	}
	tb, ok := s.Bookmarks[table]
	if !ok {
		tb = make(map[string]any)
		s.Bookmarks[table] = tb
	}
	tb[key] = value
}
