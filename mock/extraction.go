package mock

import (
	"context"

	"github.com/fwojciec/harvest"
)

var _ harvest.ExtractionService = (*ExtractionService)(nil)

// ExtractionService is a mock implementation of harvest.ExtractionService.
type ExtractionService struct {
	ListEntriesFn  func(ctx context.Context, sourceRoot string) ([]string, error)
	ExtractEntryFn func(ctx context.Context, locator string) (*harvest.Extraction, error)
	CloseFn        func() error
}

func (s *ExtractionService) ListEntries(ctx context.Context, sourceRoot string) ([]string, error) {
	return s.ListEntriesFn(ctx, sourceRoot)
}

func (s *ExtractionService) ExtractEntry(ctx context.Context, locator string) (*harvest.Extraction, error) {
	return s.ExtractEntryFn(ctx, locator)
}

func (s *ExtractionService) Close() error {
	return s.CloseFn()
}
