// Package jobs holds the reconciliation passes that heal one-sided
// relationship records. Every pass is idempotent: on a consistent store it
// performs no writes.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/sirupsen/logrus"
)

type Reconciler struct {
	store docstore.Store
	now   func() time.Time
}

// NewReconciler creates a new instance of Reconciler
func NewReconciler(store docstore.Store) *Reconciler {
	return &Reconciler{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FollowersReport is the outcome of FixFollowersSubcollection.
type FollowersReport struct {
	UsersScanned     int `json:"usersScanned"`
	FollowsProcessed int `json:"followsProcessed"`
	FollowersCreated int `json:"followersCreated"`
	Errors           int `json:"errors"`
}

// FixFollowersSubcollection creates users/{B}/followers/{A} for every
// users/{A}/following/{B} that lacks it, keeping the original followedAt.
// Failures on single edges are counted and skipped.
func (r *Reconciler) FixFollowersSubcollection(ctx context.Context) (FollowersReport, error) {
	var report FollowersReport

	userIDs, err := repository.NewUserRepository(r.store).ListUserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list users: %w", err)
	}
	follows := repository.NewFollowRepository(r.store)

	for _, userID := range userIDs {
		report.UsersScanned++
		following, err := follows.ListFollowing(ctx, userID)
		if err != nil {
			logrus.WithError(err).WithField("userID", userID).Error("Failed to read following")
			report.Errors++
			continue
		}
		for _, edge := range following {
			report.FollowsProcessed++
			created, err := r.ensureFollower(ctx, userID, edge)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"follower": userID,
					"followee": edge.UserID,
				}).Error("Failed to repair follower record")
				report.Errors++
				continue
			}
			if created {
				report.FollowersCreated++
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"usersScanned":     report.UsersScanned,
		"followsProcessed": report.FollowsProcessed,
		"followersCreated": report.FollowersCreated,
		"errors":           report.Errors,
	}).Info("Followers reconciliation completed")
	return report, nil
}

func (r *Reconciler) ensureFollower(ctx context.Context, follower string, edge models.FollowEdge) (bool, error) {
	created := false
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		created = false
		follows := repository.NewFollowRepository(tx)
		mirror, err := follows.GetFollower(ctx, edge.UserID, follower)
		if err != nil || mirror != nil {
			return err
		}
		followedAt := edge.FollowedAt
		if followedAt.IsZero() {
			followedAt = r.now()
		}
		created = true
		return follows.SetFollower(ctx, edge.UserID, models.FollowEdge{UserID: follower, FollowedAt: followedAt})
	})
	return created, err
}

// StructureReport compares the stored counters of one user with the actual
// subcollection sizes.
type StructureReport struct {
	UserID          string `json:"userId"`
	FollowersCount  int64  `json:"followersCount"`
	FollowersActual int    `json:"followersActual"`
	FollowingCount  int64  `json:"followingCount"`
	FollowingActual int    `json:"followingActual"`
	Consistent      bool   `json:"consistent"`
}

// VerifyFollowersStructure reports and logs counter drift for userID. It
// never repairs anything.
func (r *Reconciler) VerifyFollowersStructure(ctx context.Context, userID string) (StructureReport, error) {
	report := StructureReport{UserID: userID}

	user, err := repository.NewUserRepository(r.store).GetUser(ctx, userID)
	if err != nil {
		return report, err
	}
	if user == nil {
		return report, fmt.Errorf("user %s not found", userID)
	}
	follows := repository.NewFollowRepository(r.store)
	followers, err := follows.ListFollowers(ctx, userID)
	if err != nil {
		return report, err
	}
	following, err := follows.ListFollowing(ctx, userID)
	if err != nil {
		return report, err
	}

	report.FollowersCount = user.FollowersCount
	report.FollowersActual = len(followers)
	report.FollowingCount = user.FollowingCount
	report.FollowingActual = len(following)
	report.Consistent = report.FollowersCount == int64(report.FollowersActual) &&
		report.FollowingCount == int64(report.FollowingActual)

	fields := logrus.Fields{
		"userID":          userID,
		"followersCount":  report.FollowersCount,
		"followersActual": report.FollowersActual,
		"followingCount":  report.FollowingCount,
		"followingActual": report.FollowingActual,
	}
	if report.Consistent {
		logrus.WithFields(fields).Info("Follow structure consistent")
	} else {
		logrus.WithFields(fields).Warn("Follow counters do not match subcollections")
	}
	return report, nil
}
