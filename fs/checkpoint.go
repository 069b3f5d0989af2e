package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/fwojciec/harvest"
)

// Ensure CheckpointStore implements harvest.CheckpointStore at compile time.
var _ harvest.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore keeps the checkpoint as a JSON object of name to bool.
type CheckpointStore struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	record harvest.Checkpoint
}

// NewCheckpointStore creates a CheckpointStore backed by the file at path.
func NewCheckpointStore(path string, logger *slog.Logger) *CheckpointStore {
	return &CheckpointStore{
		path:   path,
		logger: logger,
		record: make(harvest.Checkpoint),
	}
}

// Path returns the checkpoint file location.
func (s *CheckpointStore) Path() string {
	return s.path
}

// Load reads the checkpoint file. A missing, unreadable, or corrupt file
// results in an empty checkpoint.
func (s *CheckpointStore) Load(ctx context.Context) (harvest.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = make(harvest.Checkpoint)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(harvest.Checkpoint), nil
	} else if err != nil {
		s.logger.Warn("checkpoint unreadable, starting empty", "path", s.path, "err", err)
		return make(harvest.Checkpoint), nil
	}

	var record harvest.Checkpoint
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("checkpoint corrupt, starting empty", "path", s.path, "err", err)
		return make(harvest.Checkpoint), nil
	}
	for name, attempted := range record {
		if attempted {
			s.record[name] = true
		}
	}

	return maps.Clone(s.record), nil
}

// MarkAttempted records that name has been attempted.
func (s *CheckpointStore) MarkAttempted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record[name] = true
}

// Attempted reports whether name has been attempted.
func (s *CheckpointStore) Attempted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record[name]
}

// Persist atomically overwrites the checkpoint file.
func (s *CheckpointStore) Persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	data, err := json.Marshal(s.record)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		return harvest.WrapError(harvest.EINTERNAL, err, "writing checkpoint %s", s.path)
	}
	return nil
}
