package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/fwojciec/harvest"
)

// Ensure ResultStore implements harvest.ResultStore at compile time.
var _ harvest.ResultStore = (*ResultStore)(nil)

// ResultStore keeps entries in memory and loads them from a structured
// snapshot written by Exporter. Durability comes from the exporter
// rewriting that snapshot after every append.
type ResultStore struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []*harvest.Entry
	byName  map[string]struct{}
}

// NewResultStore creates a ResultStore that loads from the structured
// snapshot at path.
func NewResultStore(path string, logger *slog.Logger) *ResultStore {
	return &ResultStore{
		path:   path,
		logger: logger,
		byName: make(map[string]struct{}),
	}
}

// Load replaces the store contents with the snapshot on disk. Invalid and
// duplicate entries in the snapshot are dropped with a warning.
func (s *ResultStore) Load(ctx context.Context) ([]*harvest.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.byName = make(map[string]struct{})

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		s.logger.Warn("result snapshot unreadable, starting empty", "path", s.path, "err", err)
		return nil, nil
	}

	var loaded []*harvest.Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("result snapshot corrupt, starting empty", "path", s.path, "err", err)
		return nil, nil
	}

	for _, e := range loaded {
		if e == nil {
			continue
		}
		if err := e.Validate(); err != nil {
			s.logger.Warn("dropping invalid entry from snapshot", "path", s.path, "err", harvest.ErrorMessage(err))
			continue
		}
		if _, ok := s.byName[e.Name]; ok {
			s.logger.Warn("dropping duplicate entry from snapshot", "path", s.path, "entry", e.Name)
			continue
		}
		s.byName[e.Name] = struct{}{}
		s.entries = append(s.entries, e)
	}

	return s.snapshot(), nil
}

// Append adds entry unless an entry with the same name exists.
func (s *ResultStore) Append(ctx context.Context, entry *harvest.Entry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[entry.Name]; ok {
		return false, nil
	}
	s.byName[entry.Name] = struct{}{}
	s.entries = append(s.entries, entry)
	return true, nil
}

// Has reports whether an entry named name exists.
func (s *ResultStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byName[name]
	return ok
}

// Snapshot returns the entries in append order.
func (s *ResultStore) Snapshot() []*harvest.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *ResultStore) snapshot() []*harvest.Entry {
	out := make([]*harvest.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
