package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	fieldName         = "name"
	fieldDescription  = "description"
	fieldCreatedBy    = "createdBy"
	fieldMemberUserID = "user_id"
	fieldCommunityID  = "community_id"
	fieldJoinedAt     = "joinedAt"
	fieldRole         = "role"
)

// CommunityRepository handles community documents and membership records.
type CommunityRepository struct {
	db docstore.ReadWriter
}

func NewCommunityRepository(db docstore.ReadWriter) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func communityDoc(id string) string {
	return docstore.Doc(CommunitiesCollection, id)
}

func membershipDoc(id string) string {
	return docstore.Doc(CommunityMembersCollection, id)
}

// CreateCommunity writes c under c.ID.
func (r *CommunityRepository) CreateCommunity(ctx context.Context, c *models.Community) error {
	members := make([]any, 0, len(c.Members))
	for _, m := range c.Members {
		members = append(members, m)
	}
	err := r.db.Set(ctx, communityDoc(c.ID), docstore.Fields{
		fieldName:        c.Name,
		fieldDescription: c.Description,
		fieldCreatedBy:   c.CreatedBy,
		fieldCreatedAt:   c.CreatedAt,
		FieldMembers:     members,
		FieldMemberCount: c.MemberCount,
	})
	if err != nil {
		logrus.WithError(err).WithField("communityID", c.ID).Error("Failed to create community")
		return fmt.Errorf("failed to create community: %w", err)
	}
	return nil
}

// GetCommunity returns the community, or nil when it does not exist.
func (r *CommunityRepository) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	snap, err := r.db.Get(ctx, communityDoc(id))
	if err != nil {
		return nil, fmt.Errorf("failed to find community: %w", err)
	}
	if !snap.Exists {
		return nil, nil
	}
	d := snap.Data
	return &models.Community{
		ID:          snap.ID,
		Name:        d.String(fieldName),
		Description: d.String(fieldDescription),
		CreatedBy:   d.String(fieldCreatedBy),
		CreatedAt:   d.Time(fieldCreatedAt),
		Members:     d.Strings(FieldMembers),
		MemberCount: d.Int64(FieldMemberCount),
	}, nil
}

// ListCommunityIDs returns the id of every community.
func (r *CommunityRepository) ListCommunityIDs(ctx context.Context) ([]string, error) {
	snaps, err := r.db.Query(ctx, docstore.NewQuery(CommunitiesCollection))
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID)
	}
	return ids, nil
}

// AddMember unions userID into the member array, and bumps the count when
// countIt is set.
func (r *CommunityRepository) AddMember(ctx context.Context, communityID, userID string, countIt bool) error {
	updates := []docstore.Update{docstore.ArrayUnion(FieldMembers, userID)}
	if countIt {
		updates = append(updates, docstore.Increment(FieldMemberCount, 1))
	}
	if err := r.db.Update(ctx, communityDoc(communityID), updates...); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember is the inverse of AddMember.
func (r *CommunityRepository) RemoveMember(ctx context.Context, communityID, userID string, countIt bool) error {
	updates := []docstore.Update{docstore.ArrayRemove(FieldMembers, userID)}
	if countIt {
		updates = append(updates, docstore.Increment(FieldMemberCount, -1))
	}
	if err := r.db.Update(ctx, communityDoc(communityID), updates...); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// SetMembers overwrites the member array and count.
func (r *CommunityRepository) SetMembers(ctx context.Context, communityID string, members []string) error {
	values := make([]any, 0, len(members))
	for _, m := range members {
		values = append(values, m)
	}
	err := r.db.Update(ctx, communityDoc(communityID),
		docstore.SetField(FieldMembers, values),
		docstore.SetField(FieldMemberCount, int64(len(members))),
	)
	if err != nil {
		return fmt.Errorf("failed to set members: %w", err)
	}
	return nil
}

// GetMembership reads the record under its deterministic key, or nil.
func (r *CommunityRepository) GetMembership(ctx context.Context, userID, communityID string) (*models.Membership, error) {
	snap, err := r.db.Get(ctx, membershipDoc(MembershipID(userID, communityID)))
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !snap.Exists {
		return nil, nil
	}
	m := decodeMembership(snap)
	return &m, nil
}

// FindMembership queries by user and community for records stored under
// some other key.
func (r *CommunityRepository) FindMembership(ctx context.Context, userID, communityID string) (*models.Membership, error) {
	q := docstore.NewQuery(CommunityMembersCollection).
		Where(fieldMemberUserID, docstore.Equal, userID).
		Where(fieldCommunityID, docstore.Equal, communityID).
		Limit(1)
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query membership: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	m := decodeMembership(snaps[0])
	return &m, nil
}

// ListMemberships returns every membership record of a community.
func (r *CommunityRepository) ListMemberships(ctx context.Context, communityID string) ([]models.Membership, error) {
	q := docstore.NewQuery(CommunityMembersCollection).Where(fieldCommunityID, docstore.Equal, communityID)
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	out := make([]models.Membership, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, decodeMembership(snap))
	}
	return out, nil
}

// SetMembership writes m under its deterministic key.
func (r *CommunityRepository) SetMembership(ctx context.Context, m *models.Membership) error {
	m.ID = MembershipID(m.UserID, m.CommunityID)
	err := r.db.Set(ctx, membershipDoc(m.ID), docstore.Fields{
		fieldMemberUserID: m.UserID,
		fieldCommunityID:  m.CommunityID,
		fieldJoinedAt:     m.JoinedAt,
		fieldRole:         m.Role,
	})
	if err != nil {
		return fmt.Errorf("failed to write membership: %w", err)
	}
	return nil
}

func (r *CommunityRepository) DeleteMembership(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, membershipDoc(id)); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return nil
}

func decodeMembership(snap *docstore.Snapshot) models.Membership {
	d := snap.Data
	return models.Membership{
		ID:          snap.ID,
		UserID:      d.String(fieldMemberUserID),
		CommunityID: d.String(fieldCommunityID),
		JoinedAt:    d.Time(fieldJoinedAt),
		Role:        d.String(fieldRole),
	}
}
