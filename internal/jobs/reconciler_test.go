package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, ids ...string) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemoryStore()
	users := repository.NewUserRepository(store)
	for _, id := range ids {
		require.NoError(t, users.CreateUser(context.Background(), &models.User{ID: id}))
	}
	return store
}

func TestFixFollowersCreatesMissingMirror(t *testing.T) {
	ctx := context.Background()
	store := seed(t, "a", "b", "c")
	follows := repository.NewFollowRepository(store)
	followedAt := time.Date(2022, 11, 5, 18, 0, 0, 0, time.UTC)
	require.NoError(t, follows.SetFollowing(ctx, "a", models.FollowEdge{UserID: "b", FollowedAt: followedAt}))
	require.NoError(t, follows.SetFollowing(ctx, "c", models.FollowEdge{UserID: "b", FollowedAt: followedAt}))
	require.NoError(t, follows.SetFollower(ctx, "b", models.FollowEdge{UserID: "c", FollowedAt: followedAt}))

	report, err := NewReconciler(store).FixFollowersSubcollection(ctx)
	require.NoError(t, err)

	assert.Equal(t, FollowersReport{UsersScanned: 3, FollowsProcessed: 2, FollowersCreated: 1}, report)
	mirror, err := follows.GetFollower(ctx, "b", "a")
	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.Equal(t, "a", mirror.UserID)
	assert.True(t, mirror.FollowedAt.Equal(followedAt))
}

func TestFixFollowersIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := seed(t, "a", "b")
	require.NoError(t, repository.NewFollowRepository(store).SetFollowing(ctx, "a", models.FollowEdge{UserID: "b"}))
	r := NewReconciler(store)

	first, err := r.FixFollowersSubcollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.FollowersCreated)

	writes := store.Writes()
	second, err := r.FixFollowersSubcollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FollowersCreated)
	assert.Equal(t, 1, second.FollowsProcessed)
	assert.Equal(t, writes, store.Writes())
}

func TestFixFollowersCountsErrorsAndContinues(t *testing.T) {
	ctx := context.Background()
	store := seed(t, "a", "b", "c")
	follows := repository.NewFollowRepository(store)
	require.NoError(t, follows.SetFollowing(ctx, "a", models.FollowEdge{UserID: "b"}))
	require.NoError(t, follows.SetFollowing(ctx, "a", models.FollowEdge{UserID: "c"}))
	store.SetFault(func(op docstore.WriteOp) error {
		if op.Path == repository.FollowerDoc("b", "a") {
			return errors.New("permission denied")
		}
		return nil
	})

	report, err := NewReconciler(store).FixFollowersSubcollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.FollowsProcessed)
	assert.Equal(t, 1, report.FollowersCreated)
	assert.Equal(t, 1, report.Errors)
}

func TestVerifyFollowersStructure(t *testing.T) {
	ctx := context.Background()
	store := seed(t, "a", "b")
	follows := repository.NewFollowRepository(store)
	users := repository.NewUserRepository(store)
	require.NoError(t, follows.SetFollowing(ctx, "a", models.FollowEdge{UserID: "b"}))
	require.NoError(t, users.IncrementCounter(ctx, "a", repository.FieldFollowingCount, 1))
	require.NoError(t, users.IncrementCounter(ctx, "b", repository.FieldFollowersCount, 1))
	r := NewReconciler(store)

	report, err := r.VerifyFollowersStructure(ctx, "a")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	writes := store.Writes()
	report, err = r.VerifyFollowersStructure(ctx, "b")
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, int64(1), report.FollowersCount)
	assert.Equal(t, 0, report.FollowersActual)
	assert.Equal(t, writes, store.Writes())

	_, err = r.FixFollowersSubcollection(ctx)
	require.NoError(t, err)
	report, err = r.VerifyFollowersStructure(ctx, "b")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	_, err = r.VerifyFollowersStructure(ctx, "ghost")
	assert.Error(t, err)
}

func TestFixFriendEdges(t *testing.T) {
	ctx := context.Background()
	store := seed(t, "a", "b")
	friends := repository.NewFriendRepository(store)
	addedAt := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, friends.SetEdge(ctx, "a", models.FriendEdge{UserID: "b", AddedAt: addedAt}))
	r := NewReconciler(store)

	report, err := r.FixFriendEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EdgesCreated)

	mirror, err := friends.GetEdge(ctx, "b", "a")
	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.True(t, mirror.AddedAt.Equal(addedAt))

	writes := store.Writes()
	report, err = r.FixFriendEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.EdgesCreated)
	assert.Equal(t, 2, report.EdgesProcessed)
	assert.Equal(t, writes, store.Writes())
}

func TestFixCommunityMembers(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	communities := repository.NewCommunityRepository(store)
	require.NoError(t, communities.CreateCommunity(ctx, &models.Community{
		ID: "c1", Name: "Go", Members: []string{"owner"}, MemberCount: 3,
	}))
	require.NoError(t, communities.SetMembership(ctx, &models.Membership{UserID: "owner", CommunityID: "c1", Role: models.RoleAdmin}))
	require.NoError(t, communities.SetMembership(ctx, &models.Membership{UserID: "u1", CommunityID: "c1", Role: models.RoleMember}))
	r := NewReconciler(store)

	report, err := r.FixCommunityMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, MembersReport{CommunitiesScanned: 1, MembershipsProcessed: 2, CommunitiesFixed: 1}, report)

	c, err := communities.GetCommunity(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "u1"}, c.Members)
	assert.Equal(t, int64(2), c.MemberCount)

	writes := store.Writes()
	report, err = r.FixCommunityMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.CommunitiesFixed)
	assert.Equal(t, writes, store.Writes())
}

// failingQueries fails every query the reject func matches.
type failingQueries struct {
	*docstore.MemoryStore
	reject func(q docstore.Query) bool
}

func (f *failingQueries) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	if f.reject(q) {
		return nil, errors.New("deadline exceeded")
	}
	return f.MemoryStore.Query(ctx, q)
}

func loggedError(hook *logtest.Hook, msg string) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Message == msg && entry.Data[logrus.ErrorKey] != nil {
			return true
		}
	}
	return false
}

func TestFixFriendEdgesLogsReadErrors(t *testing.T) {
	ctx := context.Background()
	store := seed(t, "a", "b")
	require.NoError(t, repository.NewFriendRepository(store).SetEdge(ctx, "b", models.FriendEdge{UserID: "a"}))
	hook := logtest.NewGlobal()
	defer hook.Reset()

	r := NewReconciler(&failingQueries{MemoryStore: store, reject: func(q docstore.Query) bool {
		return q.Collection == repository.FriendsCollection("a")
	}})
	report, err := r.FixFriendEdges(ctx)
	require.NoError(t, err)

	assert.Equal(t, FriendsReport{UsersScanned: 2, EdgesProcessed: 1, EdgesCreated: 1, Errors: 1}, report)
	assert.True(t, loggedError(hook, "Failed to read friends"))
}

func TestFixCommunityMembersLogsReadErrors(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	communities := repository.NewCommunityRepository(store)
	for _, id := range []string{"c1", "c2"} {
		require.NoError(t, communities.CreateCommunity(ctx, &models.Community{ID: id, Name: id}))
		require.NoError(t, communities.SetMembership(ctx, &models.Membership{UserID: "u1", CommunityID: id, Role: models.RoleMember}))
	}
	hook := logtest.NewGlobal()
	defer hook.Reset()

	r := NewReconciler(&failingQueries{MemoryStore: store, reject: func(q docstore.Query) bool {
		if q.Collection != repository.CommunityMembersCollection {
			return false
		}
		for _, f := range q.Filters {
			if f.Value == "c2" {
				return true
			}
		}
		return false
	}})
	report, err := r.FixCommunityMembers(ctx)
	require.NoError(t, err)

	assert.Equal(t, MembersReport{CommunitiesScanned: 2, MembershipsProcessed: 1, CommunitiesFixed: 1, Errors: 1}, report)
	assert.True(t, loggedError(hook, "Failed to read memberships"))
}

func TestRunAll(t *testing.T) {
	store := seed(t, "a")
	assert.NoError(t, NewReconciler(store).RunAll(context.Background()))
}
