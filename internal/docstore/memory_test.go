package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissingDocument(t *testing.T) {
	s := NewMemoryStore()

	snap, err := s.Get(context.Background(), "users/u1")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, "u1", snap.ID)
}

func TestMemoryStore_SetAndMerge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "users/u1", Fields{"displayName": "Ada", "followersCount": 3}))
	require.NoError(t, s.Set(ctx, "users/u1", Fields{"status": "Busy"}, Merge()))

	snap, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", snap.Data.String("displayName"))
	assert.Equal(t, int64(3), snap.Data.Int64("followersCount"))
	assert.Equal(t, "Busy", snap.Data.String("status"))

	require.NoError(t, s.Set(ctx, "users/u1", Fields{"status": "Away"}))
	snap, _ = s.Get(ctx, "users/u1")
	assert.False(t, snap.Data.Has("displayName"), "set without merge replaces the document")
}

func TestMemoryStore_UpdateOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "communities/c1", Fields{"members": []string{"a"}, "memberCount": 1, "topic": "x"}))

	err := s.Update(ctx, "communities/c1",
		ArrayUnion("members", "a", "b"),
		Increment("memberCount", 1),
		DeleteField("topic"),
		SetField("name", "Go"),
	)
	require.NoError(t, err)

	snap, _ := s.Get(ctx, "communities/c1")
	assert.Equal(t, []string{"a", "b"}, snap.Data.Strings("members"))
	assert.Equal(t, int64(2), snap.Data.Int64("memberCount"))
	assert.False(t, snap.Data.Has("topic"))
	assert.Equal(t, "Go", snap.Data.String("name"))

	require.NoError(t, s.Update(ctx, "communities/c1", ArrayRemove("members", "a"), Increment("memberCount", -1)))
	snap, _ = s.Get(ctx, "communities/c1")
	assert.Equal(t, []string{"b"}, snap.Data.Strings("members"))
	assert.Equal(t, int64(1), snap.Data.Int64("memberCount"))
}

func TestMemoryStore_UpdateMissingDocument(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "users/ghost", Increment("followersCount", 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "friend_requests/r1", Fields{"status": "pending"}))

	require.NoError(t, s.Delete(ctx, "friend_requests/r1"))
	require.NoError(t, s.Delete(ctx, "friend_requests/r1"))

	snap, _ := s.Get(ctx, "friend_requests/r1")
	assert.False(t, snap.Exists)
}

func TestMemoryStore_InvalidPaths(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "users")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = s.Query(ctx, NewQuery("users/u1"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, s.Set(ctx, "users//x", Fields{}), ErrInvalidPath)
}

func TestMemoryStore_Query(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "friend_requests/r1", Fields{"fromUserId": "a", "toUserId": "b", "status": "pending", "createdAt": base}))
	require.NoError(t, s.Set(ctx, "friend_requests/r2", Fields{"fromUserId": "c", "toUserId": "b", "status": "pending", "createdAt": base.Add(time.Hour)}))
	require.NoError(t, s.Set(ctx, "friend_requests/r3", Fields{"fromUserId": "d", "toUserId": "b", "status": "accepted", "createdAt": base.Add(2 * time.Hour)}))
	require.NoError(t, s.Set(ctx, "users/b/friends/d", Fields{"userId": "d"}))

	snaps, err := s.Query(ctx, NewQuery("friend_requests").
		Where("toUserId", Equal, "b").
		Where("status", Equal, "pending").
		Order("createdAt", true))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "r2", snaps[0].ID)
	assert.Equal(t, "r1", snaps[1].ID)

	snaps, err = s.Query(ctx, NewQuery("friend_requests").Where("createdAt", GreaterEqual, base.Add(time.Hour)).Limit(1))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "r2", snaps[0].ID)

	snaps, err = s.Query(ctx, NewQuery("users/b/friends"))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "users/b/friends/d", snaps[0].Path)
}

func TestMemoryStore_ArrayContainsQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "communities/c1", Fields{"members": []string{"a", "b"}}))
	require.NoError(t, s.Set(ctx, "communities/c2", Fields{"members": []string{"c"}}))

	snaps, err := s.Query(ctx, NewQuery("communities").Where("members", ArrayContains, "b"))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "c1", snaps[0].ID)
}

func TestMemoryStore_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetFault(func(op WriteOp) error {
		if op.Path == "users/b/friends/a" {
			return errors.New("unavailable")
		}
		return nil
	})

	b := s.Batch()
	require.NoError(t, b.Set(ctx, "users/a/friends/b", Fields{"userId": "b"}))
	require.NoError(t, b.Set(ctx, "users/b/friends/a", Fields{"userId": "a"}))
	require.Error(t, b.Commit(ctx))

	snap, _ := s.Get(ctx, "users/a/friends/b")
	assert.False(t, snap.Exists)
	assert.Equal(t, int64(0), s.Writes())
}

func TestMemoryStore_BatchUpdateOnMissingAbortsEverything(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	b := s.Batch()
	_ = b.Set(ctx, "users/a", Fields{"x": 1})
	_ = b.Update(ctx, "users/missing", Increment("x", 1))
	assert.ErrorIs(t, b.Commit(ctx), ErrNotFound)

	snap, _ := s.Get(ctx, "users/a")
	assert.False(t, snap.Exists)
}

func TestMemoryStore_TransactionCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "users/a", Fields{"followingCount": 0}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		snap, err := tx.Get(ctx, "users/a")
		if err != nil {
			return err
		}
		return tx.Set(ctx, "users/a", Fields{"followingCount": snap.Data.Int64("followingCount") + 1})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		_ = tx.Set(ctx, "users/a", Fields{"followingCount": 100})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, _ := s.Get(ctx, "users/a")
	assert.Equal(t, int64(1), snap.Data.Int64("followingCount"))
}

func TestMemoryStore_TransactionRejectsReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "users/a", Fields{}); err != nil {
			return err
		}
		_, err := tx.Get(ctx, "users/b")
		return err
	})
	assert.ErrorIs(t, err, ErrReadAfterWrite)
}

func TestMemoryStore_WatchDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sub, err := s.Watch(ctx, "users/a")
	require.NoError(t, err)
	defer sub.Stop()

	first := <-sub.Changes()
	assert.False(t, first.Exists)

	require.NoError(t, s.Set(ctx, "users/a", Fields{"status": "Busy"}))
	second := <-sub.Changes()
	assert.True(t, second.Exists)
	assert.Equal(t, "Busy", second.Data.String("status"))

	require.NoError(t, s.Delete(ctx, "users/a"))
	third := <-sub.Changes()
	assert.False(t, third.Exists)

	sub.Stop()
	_, open := <-sub.Changes()
	assert.False(t, open)
	assert.NoError(t, sub.Err())
}

func TestMemoryStore_WatchQueryReportsRemoval(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "friend_requests/r1", Fields{"toUserId": "b", "status": "pending"}))

	sub, err := s.WatchQuery(ctx, NewQuery("friend_requests").Where("toUserId", Equal, "b").Where("status", Equal, "pending"))
	require.NoError(t, err)
	defer sub.Stop()

	initial := <-sub.Changes()
	assert.Equal(t, "r1", initial.ID)

	require.NoError(t, s.Update(ctx, "friend_requests/r1", SetField("status", "accepted")))
	removed := <-sub.Changes()
	assert.Equal(t, "r1", removed.ID)
	assert.False(t, removed.Exists)
}

func TestMemoryStore_WatchStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()

	sub, err := s.Watch(ctx, "users/a")
	require.NoError(t, err)
	<-sub.Changes()

	cancel()
	assert.Eventually(t, func() bool {
		return errors.Is(sub.Err(), context.Canceled)
	}, time.Second, 10*time.Millisecond)
}
