package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Create_FreshInsert(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	res, err := store.Create(ctx, CreateParams{
		UserID:   "u1",
		Category: CategoryMessage,
		Title:    "New message",
		Body:     "You have a new message",
	})
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.NotEqual(t, "", res.ID.String())
	assert.False(t, res.CreatedAt.IsZero())
}

func TestMemoryStore_Create_DedupeReturnsWinner(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	params := CreateParams{
		UserID:    "u1",
		Category:  CategoryMessage,
		Title:     "New message",
		Body:      "body",
		DedupeKey: "conv123:msg45",
	}

	first, err := store.Create(ctx, params)
	require.NoError(t, err)
	require.True(t, first.Inserted)

	second, err := store.Create(ctx, params)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	rows, err := store.List(ctx, "u1", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryStore_Create_SameKeyDifferentUsers(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	for _, userID := range []string{"u1", "u2"} {
		res, err := store.Create(ctx, CreateParams{
			UserID:    userID,
			Category:  CategoryMessage,
			Title:     "t",
			Body:      "b",
			DedupeKey: "shared-key",
		})
		require.NoError(t, err)
		assert.True(t, res.Inserted, "dedupe key scope is per recipient")
	}
}

func TestMemoryStore_Create_NoKeyAlwaysInserts(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	params := CreateParams{UserID: "u1", Category: CategorySystem, Title: "t", Body: "b"}

	for i := 0; i < 3; i++ {
		res, err := store.Create(ctx, params)
		require.NoError(t, err)
		assert.True(t, res.Inserted)
	}

	rows, err := store.List(ctx, "u1", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestMemoryStore_Create_ConcurrentDedupe(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	inserted := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Create(ctx, CreateParams{
				UserID:    "u1",
				Category:  CategoryMessage,
				Title:     "t",
				Body:      "b",
				DedupeKey: "race-key",
			})
			require.NoError(t, err)
			inserted <- res.Inserted
		}()
	}
	wg.Wait()
	close(inserted)

	wins := 0
	for ok := range inserted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one caller wins the dedupe race")
}

func TestMemoryStore_Get(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	res, err := store.Create(ctx, CreateParams{UserID: "u1", Category: CategorySystem, Title: "t", Body: "b"})
	require.NoError(t, err)

	notif, err := store.Get(ctx, "u1", res.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "t", notif.Title)

	_, err = store.Get(ctx, "u2", res.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "u1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List_FilterAndOrder(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, cat := range []Category{CategoryMessage, CategorySystem, CategoryMessage} {
		_, err := store.Create(ctx, CreateParams{
			UserID:    "u1",
			Category:  cat,
			Title:     "t",
			Body:      "b",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	rows, err := store.List(ctx, "u1", ListOptions{Categories: []Category{CategoryMessage}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt), "newest first")

	since := base.Add(30 * time.Second)
	rows, err = store.List(ctx, "u1", ListOptions{Since: &since})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = store.List(ctx, "u1", ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
