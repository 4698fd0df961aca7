package models

import (
	"time"
)

// Activity is an audit record of a relationship transition. Friend requests
// are deleted when rejected or cancelled, so this is where their history stays.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`   // actor
	Type      string    `json:"type"`      // e.g. "friend_request_rejected", "community_left"
	TargetID  string    `json:"target_id"` // the request, user or community acted on
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

const (
	ActivityFriendRequestSent      = "friend_request_sent"
	ActivityFriendRequestAccepted  = "friend_request_accepted"
	ActivityFriendRequestRejected  = "friend_request_rejected"
	ActivityFriendRequestCancelled = "friend_request_cancelled"
	ActivityFriendRemoved          = "friend_removed"
	ActivityCommunityJoined        = "community_joined"
	ActivityCommunityLeft          = "community_left"
)
