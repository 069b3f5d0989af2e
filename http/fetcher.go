// Package http provides an HTTP-based implementation of harvest.Fetcher
// for catalogs that are served as static HTML.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/harvest"
	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default timeout for one page request.
// Kept consistent with rod.DefaultFetchTimeout.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent identifies harvest requests.
const DefaultUserAgent = "harvest/1.0 (+https://github.com/fwojciec/harvest)"

// maxBodySize caps the bytes read from one response.
const maxBodySize = 16 << 20

// Ensure Fetcher implements harvest.Fetcher at compile time.
var _ harvest.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML content from URLs using HTTP requests.
// Unlike rod.Fetcher, this does not execute JavaScript.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for one page request.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML content from the given URL as UTF-8. A request that
// outlives the fetch timeout fails with ETIMEOUT, a 404 or 410 response
// with ENOTFOUND. Cancellation of ctx is returned unwrapped.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", harvest.WrapError(harvest.EINVALID, err, "invalid url %q", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", f.classify(ctx, fetchCtx, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return "", harvest.Errorf(harvest.ENOTFOUND, "HTTP %d for %s", resp.StatusCode, url)
	case resp.StatusCode != http.StatusOK:
		return "", harvest.Errorf(harvest.EINTERNAL, "HTTP %d for %s", resp.StatusCode, url)
	}

	// Decode to UTF-8 using the Content-Type header or the document's meta tags.
	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", harvest.WrapError(harvest.EMALFORMED, err, "decoding %s", url)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", f.classify(ctx, fetchCtx, url, err)
	}

	return string(body), nil
}

func (f *Fetcher) classify(ctx, fetchCtx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return harvest.WrapError(harvest.ETIMEOUT, err, "no response from %s within %s", url, f.timeout)
	}
	return harvest.WrapError(harvest.EINTERNAL, err, "requesting %s", url)
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
