package harvest

import "context"

// Extraction holds the sub-items found on one entry page.
type Extraction struct {
	Triggers []SubItem
	Actions  []SubItem

	// Unnamed counts matched sub-item elements that had no name text.
	// They appear in neither collection.
	Unnamed int
}

// ExtractionService renders catalog pages and reads entries from them.
type ExtractionService interface {
	// ListEntries returns entry names from the catalog at sourceRoot in
	// page order. Callers treat any error as fatal for the run.
	ListEntries(ctx context.Context, sourceRoot string) ([]string, error)

	// ExtractEntry reads the sub-items from the entry page at locator.
	// Errors carry ENOTFOUND, ETIMEOUT, EMALFORMED or EINTERNAL.
	ExtractEntry(ctx context.Context, locator string) (*Extraction, error)

	// Close releases the rendering resources.
	Close() error
}

// Fetcher retrieves rendered HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch navigates to the URL, waits for the page to render,
	// and returns the rendered HTML.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases browser resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms an HTML fragment into Markdown.
	Convert(html string) (string, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
