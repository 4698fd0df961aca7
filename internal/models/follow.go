package models

import "time"

// FollowEdge is stored twice: users/{follower}/following/{followee} holds the
// followee id, users/{followee}/followers/{follower} holds the follower id.
type FollowEdge struct {
	UserID     string    `json:"userId"`
	FollowedAt time.Time `json:"followedAt"`
}
