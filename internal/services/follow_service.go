package services

import (
	"context"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// FollowService maintains the following/followers mirror and the two
// counters. Counters move only when a document is actually created or
// deleted, so each one stays equal to the size of its subcollection.
type FollowService struct {
	core
}

func NewFollowService(store docstore.Store, publisher events.Publisher, timeout time.Duration) *FollowService {
	return &FollowService{core: newCore(store, publisher, timeout)}
}

// Follow makes follower follow followee. A half-written edge left by older
// clients is completed rather than reported as a duplicate.
func (s *FollowService) Follow(ctx context.Context, follower, followee string) (*models.FollowEdge, error) {
	fields := logrus.Fields{"follower": follower, "followee": followee}
	if err := required("userId", followee); err != nil {
		return nil, fail("follow user", err, fields)
	}
	if follower == followee {
		return nil, fail("follow user", apperror.ValidationFailed("userId", "you cannot follow yourself"), fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var edge models.FollowEdge
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		follows := repository.NewFollowRepository(tx)
		users := repository.NewUserRepository(tx)

		if err := requireUsers(ctx, users, follower, followee); err != nil {
			return err
		}
		following, err := follows.GetFollowing(ctx, follower, followee)
		if err != nil {
			return err
		}
		mirror, err := follows.GetFollower(ctx, followee, follower)
		if err != nil {
			return err
		}
		if following != nil && mirror != nil {
			return apperror.Conflict("you are already following this user")
		}

		followedAt := s.now()
		if following != nil {
			followedAt = following.FollowedAt
		} else if mirror != nil {
			followedAt = mirror.FollowedAt
		}

		if following == nil {
			if err := follows.SetFollowing(ctx, follower, models.FollowEdge{UserID: followee, FollowedAt: followedAt}); err != nil {
				return err
			}
			if err := users.IncrementCounter(ctx, follower, repository.FieldFollowingCount, 1); err != nil {
				return err
			}
		}
		if mirror == nil {
			if err := follows.SetFollower(ctx, followee, models.FollowEdge{UserID: follower, FollowedAt: followedAt}); err != nil {
				return err
			}
			if err := users.IncrementCounter(ctx, followee, repository.FieldFollowersCount, 1); err != nil {
				return err
			}
		}
		edge = models.FollowEdge{UserID: followee, FollowedAt: followedAt}
		return nil
	})
	if err != nil {
		return nil, fail("follow user", err, fields)
	}

	logrus.WithFields(fields).Info("User followed")
	s.publish(ctx, events.New(events.UserFollowed, follower, followee))
	return &edge, nil
}

// Unfollow removes both sides of the edge and decrements the counters of the
// sides that existed.
func (s *FollowService) Unfollow(ctx context.Context, follower, followee string) error {
	fields := logrus.Fields{"follower": follower, "followee": followee}
	if err := required("userId", followee); err != nil {
		return fail("unfollow user", err, fields)
	}
	if follower == followee {
		return fail("unfollow user", apperror.ValidationFailed("userId", "you cannot unfollow yourself"), fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		follows := repository.NewFollowRepository(tx)
		users := repository.NewUserRepository(tx)

		following, err := follows.GetFollowing(ctx, follower, followee)
		if err != nil {
			return err
		}
		mirror, err := follows.GetFollower(ctx, followee, follower)
		if err != nil {
			return err
		}
		if following == nil && mirror == nil {
			return apperror.NotFound("follow", followee)
		}
		from, err := users.GetUser(ctx, follower)
		if err != nil {
			return err
		}
		to, err := users.GetUser(ctx, followee)
		if err != nil {
			return err
		}

		if following != nil {
			if err := follows.DeleteFollowing(ctx, follower, followee); err != nil {
				return err
			}
			if from != nil && from.FollowingCount > 0 {
				if err := users.IncrementCounter(ctx, follower, repository.FieldFollowingCount, -1); err != nil {
					return err
				}
			}
		}
		if mirror != nil {
			if err := follows.DeleteFollower(ctx, followee, follower); err != nil {
				return err
			}
			if to != nil && to.FollowersCount > 0 {
				if err := users.IncrementCounter(ctx, followee, repository.FieldFollowersCount, -1); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fail("unfollow user", err, fields)
	}

	logrus.WithFields(fields).Info("User unfollowed")
	s.publish(ctx, events.New(events.UserUnfollowed, follower, followee))
	return nil
}

// IsFollowing reports whether follower's following record for followee exists.
func (s *FollowService) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	edge, err := repository.NewFollowRepository(s.store).GetFollowing(ctx, follower, followee)
	if err != nil {
		return false, fail("check follow", err, logrus.Fields{"follower": follower, "followee": followee})
	}
	return edge != nil, nil
}

func (s *FollowService) ListFollowers(ctx context.Context, userID string) ([]models.FollowEdge, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	edges, err := repository.NewFollowRepository(s.store).ListFollowers(ctx, userID)
	if err != nil {
		return nil, fail("list followers", err, logrus.Fields{"userID": userID})
	}
	return edges, nil
}

func (s *FollowService) ListFollowing(ctx context.Context, userID string) ([]models.FollowEdge, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	edges, err := repository.NewFollowRepository(s.store).ListFollowing(ctx, userID)
	if err != nil {
		return nil, fail("list following", err, logrus.Fields{"userID": userID})
	}
	return edges, nil
}

func requireUsers(ctx context.Context, users *repository.UserRepository, ids ...string) error {
	for _, id := range ids {
		user, err := users.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return apperror.NotFound("user", id)
		}
	}
	return nil
}
