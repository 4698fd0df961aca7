package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	fieldFromUserID = "fromUserId"
	fieldToUserID   = "toUserId"
	fieldAcceptedAt = "acceptedAt"
	fieldUserID     = "userId"
	fieldAddedAt    = "addedAt"
	fieldRequestID  = "requestId"
)

// FriendRepository covers friend requests, the pair index that guards
// against duplicate pending requests, and the friend edges.
type FriendRepository struct {
	db docstore.ReadWriter
}

func NewFriendRepository(db docstore.ReadWriter) *FriendRepository {
	return &FriendRepository{db: db}
}

func requestDoc(id string) string {
	return docstore.Doc(FriendRequestsCollection, id)
}

func pairIndexDoc(a, b string) string {
	return docstore.Doc(FriendRequestIndexCollection, PairKey(a, b))
}

// CreateRequest stores req under req.ID.
func (r *FriendRepository) CreateRequest(ctx context.Context, req *models.FriendRequest) error {
	data := docstore.Fields{
		fieldFromUserID: req.FromUserID,
		fieldToUserID:   req.ToUserID,
		fieldStatus:     string(req.Status),
		fieldCreatedAt:  req.CreatedAt,
	}
	if err := r.db.Set(ctx, requestDoc(req.ID), data); err != nil {
		logrus.WithError(err).WithField("requestID", req.ID).Error("Failed to create friend request")
		return fmt.Errorf("failed to send friend request: %w", err)
	}
	return nil
}

// GetRequestByID returns the request, or nil when it does not exist.
func (r *FriendRepository) GetRequestByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	snap, err := r.db.Get(ctx, requestDoc(id))
	if err != nil {
		return nil, fmt.Errorf("failed to find friend request: %w", err)
	}
	if !snap.Exists {
		return nil, nil
	}
	return decodeRequest(snap), nil
}

// FindPendingRequest returns the pending request from → to, or nil.
func (r *FriendRepository) FindPendingRequest(ctx context.Context, from, to string) (*models.FriendRequest, error) {
	q := docstore.NewQuery(FriendRequestsCollection).
		Where(fieldFromUserID, docstore.Equal, from).
		Where(fieldToUserID, docstore.Equal, to).
		Where(fieldStatus, docstore.Equal, string(models.FriendRequestPending)).
		Limit(1)
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeRequest(snaps[0]), nil
}

// GetRequestsByReceiver lists pending requests sent to userID, newest first.
func (r *FriendRepository) GetRequestsByReceiver(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.pendingBy(ctx, fieldToUserID, userID)
}

// GetRequestsBySender lists pending requests sent by userID, newest first.
func (r *FriendRepository) GetRequestsBySender(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.pendingBy(ctx, fieldFromUserID, userID)
}

func (r *FriendRepository) pendingBy(ctx context.Context, field, userID string) ([]models.FriendRequest, error) {
	q := docstore.NewQuery(FriendRequestsCollection).
		Where(field, docstore.Equal, userID).
		Where(fieldStatus, docstore.Equal, string(models.FriendRequestPending)).
		Order(fieldCreatedAt, true)
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to find friend requests: %w", err)
	}
	requests := make([]models.FriendRequest, 0, len(snaps))
	for _, snap := range snaps {
		requests = append(requests, *decodeRequest(snap))
	}
	return requests, nil
}

// MarkAccepted moves a request to accepted.
func (r *FriendRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	err := r.db.Update(ctx, requestDoc(id),
		docstore.SetField(fieldStatus, string(models.FriendRequestAccepted)),
		docstore.SetField(fieldAcceptedAt, at),
	)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	return nil
}

func (r *FriendRepository) DeleteRequest(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, requestDoc(id)); err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	return nil
}

// GetPairIndex returns the id of the pending request recorded for the pair,
// or "" when there is none.
func (r *FriendRepository) GetPairIndex(ctx context.Context, a, b string) (string, error) {
	snap, err := r.db.Get(ctx, pairIndexDoc(a, b))
	if err != nil {
		return "", fmt.Errorf("failed to read request index: %w", err)
	}
	if !snap.Exists {
		return "", nil
	}
	return snap.Data.String(fieldRequestID), nil
}

func (r *FriendRepository) SetPairIndex(ctx context.Context, req *models.FriendRequest) error {
	err := r.db.Set(ctx, pairIndexDoc(req.FromUserID, req.ToUserID), docstore.Fields{
		fieldRequestID:  req.ID,
		fieldFromUserID: req.FromUserID,
		fieldToUserID:   req.ToUserID,
		fieldCreatedAt:  req.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write request index: %w", err)
	}
	return nil
}

func (r *FriendRepository) DeletePairIndex(ctx context.Context, a, b string) error {
	if err := r.db.Delete(ctx, pairIndexDoc(a, b)); err != nil {
		return fmt.Errorf("failed to delete request index: %w", err)
	}
	return nil
}

// GetEdge returns owner's friend edge to other, or nil.
func (r *FriendRepository) GetEdge(ctx context.Context, owner, other string) (*models.FriendEdge, error) {
	snap, err := r.db.Get(ctx, FriendDoc(owner, other))
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !snap.Exists {
		return nil, nil
	}
	edge := decodeFriendEdge(snap)
	return &edge, nil
}

// SetEdge writes users/{owner}/friends/{edge.UserID}.
func (r *FriendRepository) SetEdge(ctx context.Context, owner string, edge models.FriendEdge) error {
	err := r.db.Set(ctx, FriendDoc(owner, edge.UserID), docstore.Fields{
		fieldUserID:  edge.UserID,
		fieldAddedAt: edge.AddedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	return nil
}

func (r *FriendRepository) DeleteEdge(ctx context.Context, owner, other string) error {
	if err := r.db.Delete(ctx, FriendDoc(owner, other)); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	return nil
}

// GetFriends lists the friend edges of owner, most recent first.
func (r *FriendRepository) GetFriends(ctx context.Context, owner string) ([]models.FriendEdge, error) {
	snaps, err := r.db.Query(ctx, docstore.NewQuery(FriendsCollection(owner)).Order(fieldAddedAt, true))
	if err != nil {
		logrus.WithError(err).WithField("userID", owner).Error("Failed to list friends")
		return nil, fmt.Errorf("failed to retrieve friends: %w", err)
	}
	edges := make([]models.FriendEdge, 0, len(snaps))
	for _, snap := range snaps {
		edges = append(edges, decodeFriendEdge(snap))
	}
	return edges, nil
}

func decodeRequest(snap *docstore.Snapshot) *models.FriendRequest {
	d := snap.Data
	req := &models.FriendRequest{
		ID:         snap.ID,
		FromUserID: d.String(fieldFromUserID),
		ToUserID:   d.String(fieldToUserID),
		Status:     models.FriendRequestStatus(d.String(fieldStatus)),
		CreatedAt:  d.Time(fieldCreatedAt),
	}
	if d.Has(fieldAcceptedAt) {
		at := d.Time(fieldAcceptedAt)
		req.AcceptedAt = &at
	}
	return req
}

func decodeFriendEdge(snap *docstore.Snapshot) models.FriendEdge {
	id := snap.Data.String(fieldUserID)
	if id == "" {
		id = snap.ID
	}
	return models.FriendEdge{UserID: id, AddedAt: snap.Data.Time(fieldAddedAt)}
}
