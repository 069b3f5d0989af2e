package sqlite

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/fwojciec/harvest"
)

// Compile-time interface verification.
var _ harvest.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore implements harvest.CheckpointStore using SQLite. Names
// marked since the last Persist are written in one transaction.
type CheckpointStore struct {
	db     *DB
	logger *slog.Logger

	mu      sync.Mutex
	record  harvest.Checkpoint
	pending map[string]struct{}
}

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(db *DB, logger *slog.Logger) *CheckpointStore {
	return &CheckpointStore{
		db:      db,
		logger:  logger,
		record:  make(harvest.Checkpoint),
		pending: make(map[string]struct{}),
	}
}

// Load reads every attempted name. A failing query is returned as
// EINTERNAL.
func (s *CheckpointStore) Load(ctx context.Context) (harvest.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = make(harvest.Checkpoint)
	s.pending = make(map[string]struct{})

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM checkpoints`)
	if err != nil {
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "reading checkpoint")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			s.logger.Warn("checkpoint row unreadable, skipping", "err", err)
			continue
		}
		s.record[name] = true
	}
	if err := rows.Err(); err != nil {
		s.record = make(harvest.Checkpoint)
		return nil, harvest.WrapError(harvest.EINTERNAL, err, "reading checkpoint")
	}

	return maps.Clone(s.record), nil
}

// MarkAttempted records that name has been attempted.
func (s *CheckpointStore) MarkAttempted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record[name] {
		return
	}
	s.record[name] = true
	s.pending[name] = struct{}{}
}

// Attempted reports whether name has been attempted.
func (s *CheckpointStore) Attempted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record[name]
}

// Persist writes names marked since the previous Persist. Names already
// stored are left untouched.
func (s *CheckpointStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return harvest.WrapError(harvest.EINTERNAL, err, "persisting checkpoint")
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for name := range s.pending {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoints (name, attempted_at) VALUES (?, ?)
			ON CONFLICT(name) DO NOTHING
		`, name, now); err != nil {
			return harvest.WrapError(harvest.EINTERNAL, err, "persisting checkpoint")
		}
	}
	if err := tx.Commit(); err != nil {
		return harvest.WrapError(harvest.EINTERNAL, err, "persisting checkpoint")
	}

	s.pending = make(map[string]struct{})
	return nil
}
