package mock

import (
	"context"
	"time"

	"github.com/fwojciec/harvest"
)

// Compile-time interface verification.
var (
	_ harvest.CheckpointStore = (*CheckpointStore)(nil)
	_ harvest.ResultStore     = (*ResultStore)(nil)
	_ harvest.Exporter        = (*Exporter)(nil)
	_ harvest.DomainLimiter   = (*DomainLimiter)(nil)
)

// CheckpointStore is a mock implementation of harvest.CheckpointStore.
type CheckpointStore struct {
	LoadFn          func(ctx context.Context) (harvest.Checkpoint, error)
	MarkAttemptedFn func(name string)
	AttemptedFn     func(name string) bool
	PersistFn       func(ctx context.Context) error
}

func (s *CheckpointStore) Load(ctx context.Context) (harvest.Checkpoint, error) {
	return s.LoadFn(ctx)
}

func (s *CheckpointStore) MarkAttempted(name string) {
	s.MarkAttemptedFn(name)
}

func (s *CheckpointStore) Attempted(name string) bool {
	return s.AttemptedFn(name)
}

func (s *CheckpointStore) Persist(ctx context.Context) error {
	return s.PersistFn(ctx)
}

// ResultStore is a mock implementation of harvest.ResultStore.
type ResultStore struct {
	LoadFn     func(ctx context.Context) ([]*harvest.Entry, error)
	AppendFn   func(ctx context.Context, entry *harvest.Entry) (bool, error)
	HasFn      func(name string) bool
	SnapshotFn func() []*harvest.Entry
}

func (s *ResultStore) Load(ctx context.Context) ([]*harvest.Entry, error) {
	return s.LoadFn(ctx)
}

func (s *ResultStore) Append(ctx context.Context, entry *harvest.Entry) (bool, error) {
	return s.AppendFn(ctx, entry)
}

func (s *ResultStore) Has(name string) bool {
	return s.HasFn(name)
}

func (s *ResultStore) Snapshot() []*harvest.Entry {
	return s.SnapshotFn()
}

// Exporter is a mock implementation of harvest.Exporter.
type Exporter struct {
	WriteLatestFn func(ctx context.Context, entries []*harvest.Entry) (*harvest.Export, error)
	WriteFinalFn  func(ctx context.Context, entries []*harvest.Entry, at time.Time) (*harvest.Export, error)
}

func (e *Exporter) WriteLatest(ctx context.Context, entries []*harvest.Entry) (*harvest.Export, error) {
	return e.WriteLatestFn(ctx, entries)
}

func (e *Exporter) WriteFinal(ctx context.Context, entries []*harvest.Entry, at time.Time) (*harvest.Export, error) {
	return e.WriteFinalFn(ctx, entries, at)
}

// DomainLimiter is a mock implementation of harvest.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
