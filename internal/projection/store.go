package projection

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/seed-run/seed/internal/store"
)

// Store is the single on-disk file (state/projections.jsonl per the
// workspace layout) holding every named projection's checkpoint. It is
// rewritten atomically as a whole on every checkpoint, one JSON object per
// line keyed by projection name, so restarting the daemon never has to
// replay a projection whose state already reached the log's tail.
type Store struct {
	mu   sync.Mutex
	path string
	rows map[string]json.RawMessage
}

type row struct {
	Name  string          `json:"name"`
	Entry json.RawMessage `json:"entry"`
}

// OpenStore loads path's existing rows, or starts empty if path is absent.
func OpenStore(path string) (*Store, error) {
	rows, err := store.ReadAll[row](path)
	if err != nil {
		return nil, fmt.Errorf("projection store: %w", err)
	}
	s := &Store{path: path, rows: make(map[string]json.RawMessage, len(rows))}
	for _, r := range rows {
		s.rows[r.Name] = r.Entry
	}
	return s, nil
}

func (s *Store) load(name string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.rows[name]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (s *Store) save(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rows[name] = raw
	names := make([]string, 0, len(s.rows))
	for n := range s.rows {
		names = append(names, n)
	}
	out := make([]row, 0, len(names))
	for _, n := range names {
		out = append(out, row{Name: n, Entry: s.rows[n]})
	}
	path := s.path
	s.mu.Unlock()

	return writeLines(path, out)
}

func writeLines(path string, rows []row) error {
	// A JSONL file persisted via temp-file-then-rename: every row is
	// re-marshaled on each checkpoint since the file is small (one line
	// per projection, not one per event).
	f, err := store.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	lines := make([]any, len(rows))
	for i, r := range rows {
		lines[i] = r
	}
	return f.Rewrite(lines)
}
