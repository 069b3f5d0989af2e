package harvest

import "context"

// ResultStore holds fully extracted entries, at most one per name, in
// append order.
type ResultStore interface {
	// Load reads the persisted entries into the store and returns them.
	// A missing or unparseable snapshot yields no entries and a logged
	// diagnostic; only failures of the backing store itself are returned
	// as errors.
	Load(ctx context.Context) ([]*Entry, error)

	// Append adds entry to the store. It reports false, and leaves the
	// store unchanged, if an entry with the same name already exists.
	Append(ctx context.Context, entry *Entry) (bool, error)

	// Has reports whether an entry with the given name exists.
	Has(name string) bool

	// Snapshot returns the entries in append order. Callers must not
	// modify the returned entries.
	Snapshot() []*Entry
}
