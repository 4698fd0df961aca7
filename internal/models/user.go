package models

import (
	"time"
)

// User is the profile document at users/{ID}. Identity is owned by the auth
// provider; this service only maintains counters, status and activity.
type User struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"displayName"`
	FollowersCount int64      `json:"followersCount"`
	FollowingCount int64      `json:"followingCount"`
	Friends        int64      `json:"friends"`
	Status         string     `json:"status,omitempty"`
	CustomStatuses []string   `json:"customStatuses,omitempty"`
	LastActiveAt   *time.Time `json:"lastActiveAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UserStatus is the current status line of a user.
type UserStatus struct {
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PublicUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
