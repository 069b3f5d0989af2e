package harvest

import "context"

// Checkpoint maps an entry name to whether it has been attempted in any
// run, successful or not.
type Checkpoint map[string]bool

// CheckpointStore durably records which entry names have been attempted.
type CheckpointStore interface {
	// Load reads the persisted checkpoint into the store and returns a copy.
	// A missing or unreadable checkpoint yields an empty one; only failures
	// of the backing store itself are returned as errors.
	Load(ctx context.Context) (Checkpoint, error)

	// MarkAttempted records that name has been attempted.
	MarkAttempted(name string)

	// Attempted reports whether name has been attempted.
	Attempted(name string) bool

	// Persist overwrites the durable checkpoint with the full current record.
	Persist(ctx context.Context) error
}
