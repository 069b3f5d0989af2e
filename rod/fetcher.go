package rod

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/go-rod/rod"
)

// DefaultFetchTimeout bounds one page load, including the wait for the
// network to go idle.
const DefaultFetchTimeout = 30 * time.Second

// DefaultIdleWindow is how long the network must stay quiet before a page
// counts as rendered.
const DefaultIdleWindow = 500 * time.Millisecond

// Ensure Fetcher implements harvest.Fetcher at compile time.
var _ harvest.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using Chrome browser automation. It
// drives a single page, so concurrent Fetch calls are serialized.
type Fetcher struct {
	manager      *BrowserManager
	timeout      time.Duration
	idleWindow   time.Duration
	recycleAfter int64
	mu           sync.Mutex
	closed       atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the timeout for one page load.
// Defaults to DefaultFetchTimeout if not specified.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithIdleWindow sets how long the network must be quiet after navigation.
func WithIdleWindow(d time.Duration) Option {
	return func(f *Fetcher) {
		f.idleWindow = d
	}
}

// WithRecycleAfter restarts the browser after n page loads. Zero disables
// recycling.
func WithRecycleAfter(n int64) Option {
	return func(f *Fetcher) {
		f.recycleAfter = n
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:    DefaultFetchTimeout,
		idleWindow: DefaultIdleWindow,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(WithMaxPages(f.recycleAfter))
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates the shared page to url, waits for the load event and a
// quiet network, and returns the rendered HTML. Loads exceeding the fetch
// timeout fail with ETIMEOUT.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.closed.Load() {
		return "", harvest.Errorf(harvest.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	page, err := f.manager.Page()
	if err != nil {
		return "", harvest.WrapError(harvest.EINTERNAL, err, "acquiring browser page")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	html, err := f.render(page.Context(fetchCtx), url)
	if err != nil {
		f.manager.ResetPage()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return "", harvest.WrapError(harvest.ETIMEOUT, context.DeadlineExceeded, "%s did not load within %s", url, f.timeout)
		}
		return "", harvest.WrapError(harvest.EINTERNAL, err, "rendering %s", url)
	}

	f.manager.IncrementPageCount()
	return html, nil
}

func (f *Fetcher) render(page *rod.Page, url string) (string, error) {
	waitIdle := page.WaitRequestIdle(f.idleWindow, nil, nil, nil)

	if err := page.Navigate(url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	waitIdle()

	// waitIdle reports no error; a deadline reached while waiting surfaces here.
	return page.HTML()
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}
