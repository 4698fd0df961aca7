package jobs

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/sirupsen/logrus"
)

// FriendsReport is the outcome of FixFriendEdges.
type FriendsReport struct {
	UsersScanned   int `json:"usersScanned"`
	EdgesProcessed int `json:"edgesProcessed"`
	EdgesCreated   int `json:"edgesCreated"`
	Errors         int `json:"errors"`
}

// FixFriendEdges writes the missing mirror of every one-sided friend edge,
// with the same addedAt.
func (r *Reconciler) FixFriendEdges(ctx context.Context) (FriendsReport, error) {
	var report FriendsReport

	userIDs, err := repository.NewUserRepository(r.store).ListUserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list users: %w", err)
	}
	friends := repository.NewFriendRepository(r.store)

	for _, userID := range userIDs {
		report.UsersScanned++
		edges, err := friends.GetFriends(ctx, userID)
		if err != nil {
			logrus.WithError(err).WithField("userID", userID).Error("Failed to read friends")
			report.Errors++
			continue
		}
		for _, edge := range edges {
			report.EdgesProcessed++
			created, err := r.ensureFriendMirror(ctx, userID, edge)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"userID":   userID,
					"friendID": edge.UserID,
				}).Error("Failed to repair friend edge")
				report.Errors++
				continue
			}
			if created {
				report.EdgesCreated++
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"usersScanned":   report.UsersScanned,
		"edgesProcessed": report.EdgesProcessed,
		"edgesCreated":   report.EdgesCreated,
		"errors":         report.Errors,
	}).Info("Friend edge reconciliation completed")
	return report, nil
}

func (r *Reconciler) ensureFriendMirror(ctx context.Context, owner string, edge models.FriendEdge) (bool, error) {
	created := false
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		created = false
		friends := repository.NewFriendRepository(tx)
		mirror, err := friends.GetEdge(ctx, edge.UserID, owner)
		if err != nil || mirror != nil {
			return err
		}
		addedAt := edge.AddedAt
		if addedAt.IsZero() {
			addedAt = r.now()
		}
		created = true
		return friends.SetEdge(ctx, edge.UserID, models.FriendEdge{UserID: owner, AddedAt: addedAt})
	})
	return created, err
}

// MembersReport is the outcome of FixCommunityMembers.
type MembersReport struct {
	CommunitiesScanned   int `json:"communitiesScanned"`
	MembershipsProcessed int `json:"membershipsProcessed"`
	CommunitiesFixed     int `json:"communitiesFixed"`
	Errors               int `json:"errors"`
}

// FixCommunityMembers adds every user holding a membership record to the
// community's member array and resets memberCount to the array length.
func (r *Reconciler) FixCommunityMembers(ctx context.Context) (MembersReport, error) {
	var report MembersReport

	communities := repository.NewCommunityRepository(r.store)
	ids, err := communities.ListCommunityIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list communities: %w", err)
	}

	for _, id := range ids {
		report.CommunitiesScanned++
		memberships, err := communities.ListMemberships(ctx, id)
		if err != nil {
			logrus.WithError(err).WithField("communityID", id).Error("Failed to read memberships")
			report.Errors++
			continue
		}
		report.MembershipsProcessed += len(memberships)

		fixed, err := r.syncMembers(ctx, id, memberships)
		if err != nil {
			logrus.WithError(err).WithField("communityID", id).Error("Failed to repair community members")
			report.Errors++
			continue
		}
		if fixed {
			report.CommunitiesFixed++
		}
	}

	logrus.WithFields(logrus.Fields{
		"communitiesScanned":   report.CommunitiesScanned,
		"membershipsProcessed": report.MembershipsProcessed,
		"communitiesFixed":     report.CommunitiesFixed,
		"errors":               report.Errors,
	}).Info("Community member reconciliation completed")
	return report, nil
}

func (r *Reconciler) syncMembers(ctx context.Context, communityID string, memberships []models.Membership) (bool, error) {
	fixed := false
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		fixed = false
		communities := repository.NewCommunityRepository(tx)
		community, err := communities.GetCommunity(ctx, communityID)
		if err != nil || community == nil {
			return err
		}

		members := append([]string(nil), community.Members...)
		seen := make(map[string]bool, len(members))
		for _, m := range members {
			seen[m] = true
		}
		var missing []string
		for _, m := range memberships {
			if m.UserID != "" && !seen[m.UserID] {
				seen[m.UserID] = true
				missing = append(missing, m.UserID)
			}
		}
		sort.Strings(missing)
		members = append(members, missing...)

		if len(missing) == 0 && community.MemberCount == int64(len(members)) {
			return nil
		}
		fixed = true
		return communities.SetMembers(ctx, communityID, members)
	})
	return fixed, err
}

// RunAll runs every repair pass and logs their reports. It is what the
// scheduled job calls.
func (r *Reconciler) RunAll(ctx context.Context) error {
	if _, err := r.FixFollowersSubcollection(ctx); err != nil {
		return err
	}
	if _, err := r.FixFriendEdges(ctx); err != nil {
		return err
	}
	_, err := r.FixCommunityMembers(ctx)
	return err
}
