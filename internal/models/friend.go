package models

import (
	"time"
)

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending   FriendRequestStatus = "pending"
	FriendRequestAccepted  FriendRequestStatus = "accepted"
	FriendRequestRejected  FriendRequestStatus = "rejected"
	FriendRequestCancelled FriendRequestStatus = "cancelled"
)

// FriendRequest is one invitation between two users. Rejected and cancelled
// requests are deleted rather than stored with a terminal status.
type FriendRequest struct {
	ID         string              `json:"id"`
	FromUserID string              `json:"fromUserId"`
	ToUserID   string              `json:"toUserId"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
	AcceptedAt *time.Time          `json:"acceptedAt,omitempty"`
}

// FriendEdge is one side of a friendship, stored at users/{owner}/friends/{UserID}.
type FriendEdge struct {
	UserID  string    `json:"userId"`
	AddedAt time.Time `json:"addedAt"`
}

// FriendshipState is what getFriendshipStatus reports for a pair of users.
type FriendshipState string

const (
	FriendshipNone            FriendshipState = "none"
	FriendshipFriends         FriendshipState = "friends"
	FriendshipPendingSent     FriendshipState = "pending_sent"
	FriendshipPendingReceived FriendshipState = "pending_received"
)

type FriendshipStatus struct {
	Status    FriendshipState `json:"status"`
	RequestID string          `json:"requestId,omitempty"`
}
