package goquery_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/goquery"
	"github.com/fwojciec/harvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionService_ListEntries(t *testing.T) {
	t.Parallel()

	t.Run("fetches the source root and parses names", func(t *testing.T) {
		t.Parallel()

		var fetched string
		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				fetched = url
				return catalogHTML, nil
			},
		}
		svc := goquery.NewExtractionService(fetcher)

		names, err := svc.ListEntries(context.Background(), "https://example.com/integrations")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/integrations", fetched)
		assert.Equal(t, []string{"Slack", "Google Sheets", "Slack"}, names)
	})

	t.Run("wraps fetch errors", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "", harvest.Errorf(harvest.ENOTFOUND, "status 404")
			},
		}
		svc := goquery.NewExtractionService(fetcher)

		_, err := svc.ListEntries(context.Background(), "https://example.com/integrations")

		require.Error(t, err)
		assert.Equal(t, harvest.ENOTFOUND, harvest.ErrorCode(err))
		assert.Contains(t, err.Error(), "https://example.com/integrations")
	})
}

func TestExtractionService_ExtractEntry(t *testing.T) {
	t.Parallel()

	t.Run("parses the fetched entry page", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) { return entryHTML, nil },
		}
		svc := goquery.NewExtractionService(fetcher)

		ext, err := svc.ExtractEntry(context.Background(), "https://example.com/integrations/slack")

		require.NoError(t, err)
		assert.Len(t, ext.Triggers, 2)
		assert.Len(t, ext.Actions, 1)
	})

	t.Run("keeps the timeout code of the fetcher", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "", fmt.Errorf("navigate: %w", context.DeadlineExceeded)
			},
		}
		svc := goquery.NewExtractionService(fetcher)

		_, err := svc.ExtractEntry(context.Background(), "https://example.com/integrations/slack")

		require.Error(t, err)
		assert.Equal(t, harvest.ETIMEOUT, harvest.ErrorCode(err))
	})

	t.Run("uses selector overrides", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return `<main><ol class="t"><li>Row added</li></ol></main>`, nil
			},
		}
		svc := goquery.NewExtractionService(fetcher, goquery.WithSelectors(goquery.Selectors{
			Page:    "main",
			Trigger: "ol.t > li",
			Action:  "ol.a > li",
		}))

		ext, err := svc.ExtractEntry(context.Background(), "https://example.com/integrations/sheets")

		require.NoError(t, err)
		require.Len(t, ext.Triggers, 1)
		assert.Equal(t, "Row added", ext.Triggers[0].Name)
		assert.Empty(t, ext.Actions)
	})
}

func TestExtractionService_Close(t *testing.T) {
	t.Parallel()

	closed := false
	fetcher := &mock.Fetcher{
		CloseFn: func() error {
			closed = true
			return nil
		},
	}

	require.NoError(t, goquery.NewExtractionService(fetcher).Close())
	assert.True(t, closed)
}
