package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/harvest"
)

// Compile-time interface verification.
var _ harvest.ResultStore = (*ResultStore)(nil)

// ResultStore implements harvest.ResultStore using SQLite. Each append is
// committed before it returns; reads are served from memory.
type ResultStore struct {
	db     *DB
	logger *slog.Logger

	mu      sync.RWMutex
	entries []*harvest.Entry
	byName  map[string]struct{}
}

// NewResultStore creates a new ResultStore.
func NewResultStore(db *DB, logger *slog.Logger) *ResultStore {
	return &ResultStore{
		db:     db,
		logger: logger,
		byName: make(map[string]struct{}),
	}
}

// hashContent computes the xxHash of an entry's encoded sub-items.
func hashContent(triggers, actions []byte) string {
	d := xxhash.New()
	_, _ = d.Write(triggers)
	_, _ = d.Write(actions)
	return fmt.Sprintf("%016x", d.Sum64())
}

// Load reads all stored entries in append order. Rows that fail to decode,
// or whose sub-items no longer match their content hash, are dropped with a
// warning. A failing query is returned as EINTERNAL.
func (s *ResultStore) Load(ctx context.Context) ([]*harvest.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.byName = make(map[string]struct{})

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, url, triggers, actions, content_hash
		FROM entries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "reading results")
	}
	defer rows.Close()

	for rows.Next() {
		var e harvest.Entry
		var triggers, actions, hash string
		if err := rows.Scan(&e.Name, &e.URL, &triggers, &actions, &hash); err != nil {
			s.logger.Warn("dropping unreadable entry row", "err", err)
			continue
		}
		if err := json.Unmarshal([]byte(triggers), &e.Triggers); err != nil {
			s.logger.Warn("dropping corrupt entry", "entry", e.Name, "err", err)
			continue
		}
		if err := json.Unmarshal([]byte(actions), &e.Actions); err != nil {
			s.logger.Warn("dropping corrupt entry", "entry", e.Name, "err", err)
			continue
		}
		if got := hashContent([]byte(triggers), []byte(actions)); got != hash {
			s.logger.Warn("dropping entry with mismatched content hash", "entry", e.Name, "stored", hash, "computed", got)
			continue
		}
		s.byName[e.Name] = struct{}{}
		s.entries = append(s.entries, &e)
	}
	if err := rows.Err(); err != nil {
		s.entries = nil
		s.byName = make(map[string]struct{})
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "reading results")
	}

	return s.snapshot(), nil
}

// Append stores entry unless an entry with the same name exists.
func (s *ResultStore) Append(ctx context.Context, entry *harvest.Entry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[entry.Name]; ok {
		return false, nil
	}

	triggers, err := encodeItems(entry.Triggers)
	if err != nil {
		return false, err
	}
	actions, err := encodeItems(entry.Actions)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (name, position, url, triggers, actions, content_hash, harvested_at)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM entries), ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, entry.Name, entry.URL, string(triggers), string(actions),
		hashContent(triggers, actions), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, harvest.WrapError(harvest.EINTERNAL, err, "storing entry %q", entry.Name)
	}

	// Another writer may have stored the name since Load.
	n, err := res.RowsAffected()
	if err != nil {
		return false, harvest.WrapError(harvest.EINTERNAL, err, "storing entry %q", entry.Name)
	}
	if n == 0 {
		s.logger.Warn("entry already stored by another run", "entry", entry.Name)
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

func encodeItems(items []harvest.SubItem) ([]byte, error) {
	if items == nil {
		items = []harvest.SubItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "encoding sub-items")
	}
	return data, nil
}
