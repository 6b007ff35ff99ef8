package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

// runStoreTests checks the behaviour every Store implementation shares.
// sweeps is false for stores that expire sessions on their own.
func runStoreTests(t *testing.T, store Store, sweeps bool) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and get", func(t *testing.T) {
		s := &Session{
			ID:        "s1",
			Token:     "t1",
			User:      domain.User{ID: "1", StudentID: "20210001", Name: "Alice"},
			CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "t1", got.Token)
		assert.Equal(t, domain.ID("1"), got.User.ID)
		assert.Equal(t, "Alice", got.User.Name)
		assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, got.MessagesSeenAt.IsZero())
	})

	t.Run("save overwrites", func(t *testing.T) {
		seen := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		s := &Session{ID: "s2", Token: "old", User: domain.User{ID: "2"}, CreatedAt: time.Now().UTC()}
		require.NoError(t, store.Save(ctx, s))

		s.Token = "new"
		s.MessagesSeenAt = seen
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, "new", got.Token)
		assert.True(t, seen.Equal(got.MessagesSeenAt))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &Session{ID: "s3", Token: "t", CreatedAt: time.Now().UTC()}))
		require.NoError(t, store.Delete(ctx, "s3"))

		_, err := store.Get(ctx, "s3")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.NoError(t, store.Delete(ctx, "never-existed"))
	})

	t.Run("delete created before", func(t *testing.T) {
		cutoff := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Save(ctx, &Session{ID: "old", Token: "t", CreatedAt: cutoff.Add(-time.Hour)}))
		require.NoError(t, store.Save(ctx, &Session{ID: "fresh", Token: "t", CreatedAt: cutoff.Add(time.Hour)}))

		n, err := store.DeleteCreatedBefore(ctx, cutoff)
		require.NoError(t, err)

		_, err = store.Get(ctx, "fresh")
		assert.NoError(t, err)
		if !sweeps {
			assert.Zero(t, n)
			return
		}
		// "s1" from an earlier subtest is older than cutoff too
		assert.GreaterOrEqual(t, n, int64(1))
		_, err = store.Get(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("display names", func(t *testing.T) {
		_, err := store.DisplayName(ctx, "404")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, store.SetDisplayName(ctx, "7", "Bob"))
		require.NoError(t, store.SetDisplayName(ctx, "7", "Bobby"))
		name, err := store.DisplayName(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, "Bobby", name)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore(), true)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &Session{ID: "s", Token: "t"}))

	got, err := store.Get(ctx, "s")
	require.NoError(t, err)
	got.Token = "changed"

	again, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "t", again.Token)
}
