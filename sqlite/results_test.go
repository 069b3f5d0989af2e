package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/sqlite"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slackEntry() *harvest.Entry {
	return &harvest.Entry{
		Name: "Slack",
		URL:  "https://example.com/integrations/slack",
		Triggers: []harvest.SubItem{{
			Name:        "New message",
			Description: "Triggers when a message is posted",
			Attributes:  map[string]string{"data-type": "polling"},
		}},
		Actions: []harvest.SubItem{{
			Name:       "Post message",
			Attributes: map[string]string{},
		}},
	}
}

func TestResultStore_Append(t *testing.T) {
	t.Parallel()

	t.Run("stores entry and reports it", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewResultStore(setupTestDB(t), discardLogger())
		ctx := context.Background()

		added, err := store.Append(ctx, slackEntry())

		require.NoError(t, err)
		assert.True(t, added)
		assert.True(t, store.Has("Slack"))
		assert.Len(t, store.Snapshot(), 1)
	})

	t.Run("ignores an entry whose name exists", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewResultStore(setupTestDB(t), discardLogger())
		ctx := context.Background()
		_, err := store.Append(ctx, slackEntry())
		require.NoError(t, err)

		dup := slackEntry()
		dup.URL = "https://example.com/integrations/slack-2"
		added, err := store.Append(ctx, dup)

		require.NoError(t, err)
		assert.False(t, added)
		require.Len(t, store.Snapshot(), 1)
		assert.Equal(t, "https://example.com/integrations/slack", store.Snapshot()[0].URL)
	})

	t.Run("ignores an entry stored by another store", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		first := sqlite.NewResultStore(db, discardLogger())
		second := sqlite.NewResultStore(db, discardLogger())
		_, err := second.Load(ctx)
		require.NoError(t, err)

		_, err = first.Append(ctx, slackEntry())
		require.NoError(t, err)
		added, err := second.Append(ctx, slackEntry())

		require.NoError(t, err)
		assert.False(t, added)
		assert.False(t, second.Has("Slack"))
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewResultStore(setupTestDB(t), discardLogger())

		_, err := store.Append(context.Background(), &harvest.Entry{Name: "Slack"})

		require.Error(t, err)
		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
		assert.False(t, store.Has("Slack"))
	})
}

func TestResultStore_Load(t *testing.T) {
	t.Parallel()

	t.Run("returns entries in append order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		writer := sqlite.NewResultStore(db, discardLogger())
		names := []string{"Zendesk", "Asana", "Slack", "Jira"}
		for _, name := range names {
			_, err := writer.Append(ctx, &harvest.Entry{
				Name:     name,
				URL:      harvest.Locator("https://example.com/integrations", name),
				Triggers: []harvest.SubItem{},
				Actions:  []harvest.SubItem{},
			})
			require.NoError(t, err)
		}

		reader := sqlite.NewResultStore(db, discardLogger())
		loaded, err := reader.Load(ctx)

		require.NoError(t, err)
		var got []string
		for _, e := range loaded {
			got = append(got, e.Name)
		}
		assert.Equal(t, names, got)
		assert.True(t, reader.Has("Asana"))
	})

	t.Run("round-trips sub-items", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		_, err := sqlite.NewResultStore(db, discardLogger()).Append(ctx, slackEntry())
		require.NoError(t, err)

		loaded, err := sqlite.NewResultStore(db, discardLogger()).Load(ctx)

		require.NoError(t, err)
		require.Len(t, loaded, 1)
		if diff := cmp.Diff(slackEntry(), loaded[0]); diff != "" {
			t.Errorf("loaded entry mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("drops rows with corrupt sub-items", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		_, err := sqlite.NewResultStore(db, discardLogger()).Append(ctx, slackEntry())
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `
			INSERT INTO entries (name, position, url, triggers, actions, harvested_at)
			VALUES ('Broken', 1, 'https://example.com/integrations/broken', '{not json', '[]', '2024-12-19T10:00:00Z')
		`)
		require.NoError(t, err)

		store := sqlite.NewResultStore(db, discardLogger())
		loaded, err := store.Load(ctx)

		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "Slack", loaded[0].Name)
		assert.False(t, store.Has("Broken"))
	})

	t.Run("drops rows whose sub-items do not match the content hash", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		store := sqlite.NewResultStore(db, discardLogger())
		_, err := store.Append(ctx, slackEntry())
		require.NoError(t, err)
		_, err = store.Append(ctx, &harvest.Entry{Name: "Jira", URL: "https://example.com/integrations/jira"})
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `UPDATE entries SET triggers = '[]' WHERE name = 'Slack'`)
		require.NoError(t, err)

		reloaded := sqlite.NewResultStore(db, discardLogger())
		loaded, err := reloaded.Load(ctx)

		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "Jira", loaded[0].Name)
		assert.False(t, reloaded.Has("Slack"))
	})

	t.Run("returns error on a closed database", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		require.NoError(t, db.Open())
		require.NoError(t, db.Close())

		_, err := sqlite.NewResultStore(db, discardLogger()).Load(context.Background())

		require.Error(t, err)
		assert.Equal(t, harvest.EINTERNAL, harvest.ErrorCode(err))
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewResultStore(setupTestDB(t), discardLogger())
		_, err := store.Append(context.Background(), slackEntry())
		require.NoError(t, err)

		snap := store.Snapshot()
		snap[0] = nil

		assert.NotNil(t, store.Snapshot()[0])
	})
}
