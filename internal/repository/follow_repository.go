package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
)

const fieldFollowedAt = "followedAt"

// FollowRepository reads and writes the two sides of a follow edge. It never
// writes one side implicitly; callers decide whether both go in one transaction.
type FollowRepository struct {
	db docstore.ReadWriter
}

func NewFollowRepository(db docstore.ReadWriter) *FollowRepository {
	return &FollowRepository{db: db}
}

// GetFollowing returns users/{follower}/following/{followee}, or nil.
func (r *FollowRepository) GetFollowing(ctx context.Context, follower, followee string) (*models.FollowEdge, error) {
	return r.get(ctx, FollowingDoc(follower, followee))
}

// GetFollower returns users/{followee}/followers/{follower}, or nil.
func (r *FollowRepository) GetFollower(ctx context.Context, followee, follower string) (*models.FollowEdge, error) {
	return r.get(ctx, FollowerDoc(followee, follower))
}

func (r *FollowRepository) get(ctx context.Context, path string) (*models.FollowEdge, error) {
	snap, err := r.db.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !snap.Exists {
		return nil, nil
	}
	edge := decodeFollowEdge(snap)
	return &edge, nil
}

// SetFollowing records that follower follows edge.UserID.
func (r *FollowRepository) SetFollowing(ctx context.Context, follower string, edge models.FollowEdge) error {
	return r.set(ctx, FollowingDoc(follower, edge.UserID), edge)
}

// SetFollower records that edge.UserID follows followee.
func (r *FollowRepository) SetFollower(ctx context.Context, followee string, edge models.FollowEdge) error {
	return r.set(ctx, FollowerDoc(followee, edge.UserID), edge)
}

func (r *FollowRepository) set(ctx context.Context, path string, edge models.FollowEdge) error {
	err := r.db.Set(ctx, path, docstore.Fields{
		fieldUserID:     edge.UserID,
		fieldFollowedAt: edge.FollowedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (r *FollowRepository) DeleteFollowing(ctx context.Context, follower, followee string) error {
	return r.delete(ctx, FollowingDoc(follower, followee))
}

func (r *FollowRepository) DeleteFollower(ctx context.Context, followee, follower string) error {
	return r.delete(ctx, FollowerDoc(followee, follower))
}

func (r *FollowRepository) delete(ctx context.Context, path string) error {
	if err := r.db.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// ListFollowing returns who userID follows, most recent first.
func (r *FollowRepository) ListFollowing(ctx context.Context, userID string) ([]models.FollowEdge, error) {
	return r.list(ctx, FollowingCollection(userID))
}

// ListFollowers returns who follows userID, most recent first.
func (r *FollowRepository) ListFollowers(ctx context.Context, userID string) ([]models.FollowEdge, error) {
	return r.list(ctx, FollowersCollection(userID))
}

func (r *FollowRepository) list(ctx context.Context, collection string) ([]models.FollowEdge, error) {
	snaps, err := r.db.Query(ctx, docstore.NewQuery(collection).Order(fieldFollowedAt, true))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	edges := make([]models.FollowEdge, 0, len(snaps))
	for _, snap := range snaps {
		edges = append(edges, decodeFollowEdge(snap))
	}
	return edges, nil
}

// Older records may lack userId; the document id is the other user then.
func decodeFollowEdge(snap *docstore.Snapshot) models.FollowEdge {
	id := snap.Data.String(fieldUserID)
	if id == "" {
		id = snap.ID
	}
	return models.FollowEdge{UserID: id, FollowedAt: snap.Data.Time(fieldFollowedAt)}
}
