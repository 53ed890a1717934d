package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yodateam/faceit-backend/internal/repository"
	"github.com/yodateam/faceit-backend/internal/repository/postgres"
	"github.com/yodateam/faceit-backend/internal/testutil"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStateStore_RoundTrip(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	store := postgres.NewStateStore(testDB.DB)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", record{Name: "a", Count: 1}, 0))

	var got record
	require.NoError(t, store.Get(ctx, "k1", &got))
	assert.Equal(t, record{Name: "a", Count: 1}, got)

	// overwrite in place
	require.NoError(t, store.Set(ctx, "k1", record{Name: "a", Count: 2}, 0))
	require.NoError(t, store.Get(ctx, "k1", &got))
	assert.Equal(t, 2, got.Count)

	require.NoError(t, store.Delete(ctx, "k1"))
	err := store.Get(ctx, "k1", &got)
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)

	// deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, "k1"))
}

func TestStateStore_Expiry(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	store := postgres.NewStateStore(testDB.DB)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "fleeting", record{Name: "x"}, 50*time.Millisecond))

	var got record
	require.NoError(t, store.Get(ctx, "fleeting", &got))

	time.Sleep(100 * time.Millisecond)
	err := store.Get(ctx, "fleeting", &got)
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
}

func TestStateStore_List(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	store := postgres.NewStateStore(testDB.DB)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "match:a", record{Name: "a"}, 0))
	require.NoError(t, store.Set(ctx, "match:b", record{Name: "b"}, 0))
	require.NoError(t, store.Set(ctx, "pending:c", record{Name: "c"}, 0))
	require.NoError(t, store.Set(ctx, "match:z", record{Name: "z"}, 50*time.Millisecond))

	time.Sleep(100 * time.Millisecond)

	var got []record
	require.NoError(t, store.List(ctx, "match:", &got))
	require.Len(t, got, 2, "expired and foreign keys excluded")
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}
