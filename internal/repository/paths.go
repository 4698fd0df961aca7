package repository

import "github.com/Dias221467/Social_Graph/internal/docstore"

// Top-level collections.
const (
	UsersCollection              = "users"
	FriendRequestsCollection     = "friend_requests"
	FriendRequestIndexCollection = "friend_request_index"
	CommunitiesCollection        = "communities"
	CommunityMembersCollection   = "communities_members"
	ActivitiesCollection         = "activities"
)

// Counter fields on user and community documents.
const (
	FieldFollowersCount = "followersCount"
	FieldFollowingCount = "followingCount"
	FieldFriends        = "friends"
	FieldMembers        = "members"
	FieldMemberCount    = "memberCount"
)

func UserDoc(userID string) string {
	return docstore.Doc(UsersCollection, userID)
}

// FriendsCollection is users/{owner}/friends.
func FriendsCollection(owner string) string {
	return UserDoc(owner) + "/friends"
}

func FriendDoc(owner, other string) string {
	return docstore.Doc(UsersCollection, owner, "friends", other)
}

// FollowingCollection lists who userID follows.
func FollowingCollection(userID string) string {
	return UserDoc(userID) + "/following"
}

// FollowersCollection lists who follows userID.
func FollowersCollection(userID string) string {
	return UserDoc(userID) + "/followers"
}

func FollowingDoc(follower, followee string) string {
	return docstore.Doc(UsersCollection, follower, "following", followee)
}

func FollowerDoc(followee, follower string) string {
	return docstore.Doc(UsersCollection, followee, "followers", follower)
}

// MembershipID is the deterministic key of a membership record.
func MembershipID(userID, communityID string) string {
	return userID + "_" + communityID
}

// PairKey identifies an unordered pair of users, so A→B and B→A share it.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}
