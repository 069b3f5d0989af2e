package goquery

import (
	"context"
	"fmt"

	"github.com/fwojciec/harvest"
)

// Ensure ExtractionService implements harvest.ExtractionService at compile time.
var _ harvest.ExtractionService = (*ExtractionService)(nil)

// ExtractionService reads catalog and entry pages fetched by a Fetcher.
// The Fetcher owns rendering and the per-page timeout.
type ExtractionService struct {
	fetcher   harvest.Fetcher
	selectors Selectors
	converter harvest.Converter
}

// Option configures an ExtractionService.
type Option func(*ExtractionService)

// WithSelectors overrides selectors. Empty fields keep their defaults.
func WithSelectors(sel Selectors) Option {
	return func(s *ExtractionService) {
		s.selectors = sel.Merge(DefaultSelectors())
	}
}

// WithConverter converts description markup with conv.
func WithConverter(conv harvest.Converter) Option {
	return func(s *ExtractionService) {
		s.converter = conv
	}
}

// NewExtractionService creates an ExtractionService using DefaultSelectors.
func NewExtractionService(fetcher harvest.Fetcher, opts ...Option) *ExtractionService {
	s := &ExtractionService{
		fetcher:   fetcher,
		selectors: DefaultSelectors(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListEntries fetches the catalog page and returns its entry names.
func (s *ExtractionService) ListEntries(ctx context.Context, sourceRoot string) ([]string, error) {
	html, err := s.fetcher.Fetch(ctx, sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog %s: %w", sourceRoot, err)
	}
	return ParseCatalog(html, s.selectors)
}

// ExtractEntry fetches the entry page at locator and parses its sub-items.
func (s *ExtractionService) ExtractEntry(ctx context.Context, locator string) (*harvest.Extraction, error) {
	html, err := s.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", locator, err)
	}
	return ParseEntry(html, s.selectors, s.converter)
}

// Close closes the underlying Fetcher.
func (s *ExtractionService) Close() error {
	return s.fetcher.Close()
}
