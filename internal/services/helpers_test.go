package services

import (
	"context"
	"testing"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/stretchr/testify/require"
)

func newStoreWithUsers(t *testing.T, ids ...string) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemoryStore()
	users := repository.NewUserRepository(store)
	for _, id := range ids {
		require.NoError(t, users.CreateUser(context.Background(), &models.User{ID: id, DisplayName: "User " + id}))
	}
	return store
}

func docExists(t *testing.T, store docstore.Store, path string) bool {
	t.Helper()
	snap, err := store.Get(context.Background(), path)
	require.NoError(t, err)
	return snap.Exists
}

func userCounter(t *testing.T, store docstore.Store, userID, field string) int64 {
	t.Helper()
	snap, err := store.Get(context.Background(), repository.UserDoc(userID))
	require.NoError(t, err)
	require.True(t, snap.Exists, "user %s missing", userID)
	return snap.Data.Int64(field)
}

func collectionSize(t *testing.T, store docstore.Store, collection string) int {
	t.Helper()
	snaps, err := store.Query(context.Background(), docstore.NewQuery(collection))
	require.NoError(t, err)
	return len(snaps)
}
