package services

import (
	"context"
	"strings"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxCommunityNameLength = 80

// CommunityService keeps membership records in step with the member array
// and count on the community document.
type CommunityService struct {
	core
}

func NewCommunityService(store docstore.Store, publisher events.Publisher, timeout time.Duration) *CommunityService {
	return &CommunityService{core: newCore(store, publisher, timeout)}
}

// CreateCommunity creates a community whose only member is its creator, as admin.
func (s *CommunityService) CreateCommunity(ctx context.Context, creatorID, name, description string) (*models.Community, error) {
	fields := logrus.Fields{"creator": creatorID}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fail("create community", apperror.ValidationFailed("name", "community name is required"), fields)
	}
	if len(name) > maxCommunityNameLength {
		return nil, fail("create community", apperror.ValidationFailed("name", "community name is too long"), fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	community := &models.Community{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   creatorID,
		CreatedAt:   now,
		Members:     []string{creatorID},
		MemberCount: 1,
	}
	membership := &models.Membership{
		UserID:      creatorID,
		CommunityID: community.ID,
		JoinedAt:    now,
		Role:        models.RoleAdmin,
	}

	batch := s.store.Batch()
	communities := repository.NewCommunityRepository(batchWriter{batch})
	if err := communities.CreateCommunity(ctx, community); err != nil {
		return nil, fail("create community", err, fields)
	}
	if err := communities.SetMembership(ctx, membership); err != nil {
		return nil, fail("create community", err, fields)
	}
	if err := batch.Commit(ctx); err != nil {
		return nil, fail("create community", err, fields)
	}

	logrus.WithFields(fields).WithField("communityID", community.ID).Info("Community created")
	return community, nil
}

// JoinCommunity adds userID to the community. The membership record, the
// member array and the count are written in one transaction, and the count
// only moves when the user was not in the array yet.
func (s *CommunityService) JoinCommunity(ctx context.Context, userID, communityID string) (*models.Membership, error) {
	fields := logrus.Fields{"userID": userID, "communityID": communityID}
	if err := required("communityId", communityID); err != nil {
		return nil, fail("join community", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var joined *models.Membership
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		communities := repository.NewCommunityRepository(tx)

		community, err := communities.GetCommunity(ctx, communityID)
		if err != nil {
			return err
		}
		if community == nil {
			return apperror.NotFound("community", communityID)
		}
		membership, err := findMembership(ctx, communities, userID, communityID)
		if err != nil {
			return err
		}
		listed := contains(community.Members, userID)
		if membership != nil && listed {
			return apperror.Conflict("you are already a member of this community")
		}

		if membership == nil {
			membership = &models.Membership{
				UserID:      userID,
				CommunityID: communityID,
				JoinedAt:    s.now(),
				Role:        models.RoleMember,
			}
			if err := communities.SetMembership(ctx, membership); err != nil {
				return err
			}
		}
		if !listed {
			if err := communities.AddMember(ctx, communityID, userID, true); err != nil {
				return err
			}
		}
		joined = membership
		return repository.NewActivityRepository(tx).CreateActivity(ctx, s.activity(userID, models.ActivityCommunityJoined, communityID, "joined a community"))
	})
	if err != nil {
		return nil, fail("join community", err, fields)
	}

	logrus.WithFields(fields).Info("Joined community")
	s.publish(ctx, events.New(events.CommunityJoined, userID, communityID))
	return joined, nil
}

// LeaveCommunity is the inverse of JoinCommunity.
func (s *CommunityService) LeaveCommunity(ctx context.Context, userID, communityID string) error {
	fields := logrus.Fields{"userID": userID, "communityID": communityID}
	if err := required("communityId", communityID); err != nil {
		return fail("leave community", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		communities := repository.NewCommunityRepository(tx)

		community, err := communities.GetCommunity(ctx, communityID)
		if err != nil {
			return err
		}
		if community == nil {
			return apperror.NotFound("community", communityID)
		}
		membership, err := findMembership(ctx, communities, userID, communityID)
		if err != nil {
			return err
		}
		listed := contains(community.Members, userID)
		if membership == nil && !listed {
			return apperror.NotFound("membership", repository.MembershipID(userID, communityID))
		}

		if membership != nil {
			if err := communities.DeleteMembership(ctx, membership.ID); err != nil {
				return err
			}
		}
		if listed {
			if err := communities.RemoveMember(ctx, communityID, userID, community.MemberCount > 0); err != nil {
				return err
			}
		}
		return repository.NewActivityRepository(tx).CreateActivity(ctx, s.activity(userID, models.ActivityCommunityLeft, communityID, "left a community"))
	})
	if err != nil {
		return fail("leave community", err, fields)
	}

	logrus.WithFields(fields).Info("Left community")
	s.publish(ctx, events.New(events.CommunityLeft, userID, communityID))
	return nil
}

// CheckMembership returns the membership of userID, or nil when there is none.
func (s *CommunityService) CheckMembership(ctx context.Context, userID, communityID string) (*models.Membership, error) {
	fields := logrus.Fields{"userID": userID, "communityID": communityID}
	if err := required("communityId", communityID); err != nil {
		return nil, fail("check membership", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	membership, err := findMembership(ctx, repository.NewCommunityRepository(s.store), userID, communityID)
	if err != nil {
		return nil, fail("check membership", err, fields)
	}
	return membership, nil
}

// findMembership prefers the deterministic key and falls back to a query for
// records stored under another id.
func findMembership(ctx context.Context, communities *repository.CommunityRepository, userID, communityID string) (*models.Membership, error) {
	membership, err := communities.GetMembership(ctx, userID, communityID)
	if err != nil || membership != nil {
		return membership, err
	}
	return communities.FindMembership(ctx, userID, communityID)
}

// batchWriter lets repositories write into a batch. Batches cannot read, so
// the read methods fail.
type batchWriter struct {
	docstore.WriteBatch
}

func (batchWriter) Get(context.Context, string) (*docstore.Snapshot, error) {
	return nil, errBatchRead
}

func (batchWriter) Query(context.Context, docstore.Query) ([]*docstore.Snapshot, error) {
	return nil, errBatchRead
}
