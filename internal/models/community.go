package models

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Community keeps a denormalized member list and count next to the
// per-user membership records.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	Members     []string  `json:"members"`
	MemberCount int64     `json:"memberCount"`
}

// Membership is stored at communities_members/{UserID}_{CommunityID}.
type Membership struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CommunityID string    `json:"community_id"`
	JoinedAt    time.Time `json:"joinedAt"`
	Role        string    `json:"role"`
}
