package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, PairKey("alice", "bob"), PairKey("bob", "alice"))
	assert.Equal(t, "alice_bob", PairKey("bob", "alice"))
}

func TestEdgePaths(t *testing.T) {
	assert.Equal(t, "users/a/following/b", FollowingDoc("a", "b"))
	assert.Equal(t, "users/b/followers/a", FollowerDoc("b", "a"))
	assert.Equal(t, "users/a/friends/b", FriendDoc("a", "b"))
	assert.Equal(t, "u1_c1", MembershipID("u1", "c1"))
}

func TestGetUserMissingReturnsNil(t *testing.T) {
	user, err := NewUserRepository(docstore.NewMemoryStore()).GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestFollowEdgeWithoutUserIDUsesDocumentID(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, FollowingDoc("a", "b"), docstore.Fields{fieldFollowedAt: at}))

	edge, err := NewFollowRepository(store).GetFollowing(ctx, "a", "b")
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.UserID)
	assert.True(t, at.Equal(edge.FollowedAt))
}

func TestPairIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	friends := NewFriendRepository(docstore.NewMemoryStore())
	req := &models.FriendRequest{ID: "r1", FromUserID: "b", ToUserID: "a", CreatedAt: time.Now()}
	require.NoError(t, friends.SetPairIndex(ctx, req))

	id, err := friends.GetPairIndex(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	require.NoError(t, friends.DeletePairIndex(ctx, "b", "a"))
	id, err = friends.GetPairIndex(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFindMembershipUnderLegacyKey(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, docstore.Doc(CommunityMembersCollection, "legacy-id"), docstore.Fields{
		fieldMemberUserID: "u1",
		fieldCommunityID:  "c1",
		fieldRole:         models.RoleMember,
	}))
	communities := NewCommunityRepository(store)

	m, err := communities.GetMembership(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = communities.FindMembership(ctx, "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "legacy-id", m.ID)
}

func TestUserActivitiesNewestFirst(t *testing.T) {
	ctx := context.Background()
	activities := NewActivityRepository(docstore.NewMemoryStore())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, typ := range []string{models.ActivityFriendRequestSent, models.ActivityFriendRequestAccepted, models.ActivityFriendRemoved} {
		require.NoError(t, activities.CreateActivity(ctx, &models.Activity{
			ID:        typ,
			UserID:    "u1",
			Type:      typ,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := activities.GetUserActivities(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ActivityFriendRemoved, got[0].Type)
	assert.Equal(t, models.ActivityFriendRequestAccepted, got[1].Type)
}
