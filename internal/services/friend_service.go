package services

import (
	"context"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FriendService handles the friend request lifecycle and friend edges.
type FriendService struct {
	core
}

// NewFriendService creates a new FriendService.
func NewFriendService(store docstore.Store, publisher events.Publisher, timeout time.Duration) *FriendService {
	return &FriendService{core: newCore(store, publisher, timeout)}
}

// SendRequest creates a pending request from → to. The existence checks and
// the write share one transaction, and concurrent sends for the same pair
// contend on the pair index document.
func (s *FriendService) SendRequest(ctx context.Context, from, to string) (*models.FriendRequest, error) {
	fields := logrus.Fields{"from": from, "to": to}
	if err := required("fromUserId", from); err != nil {
		return nil, fail("send friend request", err, fields)
	}
	if err := required("toUserId", to); err != nil {
		return nil, fail("send friend request", err, fields)
	}
	if from == to {
		return nil, fail("send friend request",
			apperror.ValidationFailed("toUserId", "you cannot send a friend request to yourself"), fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req := &models.FriendRequest{
		ID:         uuid.NewString(),
		FromUserID: from,
		ToUserID:   to,
		Status:     models.FriendRequestPending,
		CreatedAt:  s.now(),
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		friends := repository.NewFriendRepository(tx)
		users := repository.NewUserRepository(tx)

		recipient, err := users.GetUser(ctx, to)
		if err != nil {
			return err
		}
		if recipient == nil {
			return apperror.NotFound("user", to)
		}
		edge, err := friends.GetEdge(ctx, from, to)
		if err != nil {
			return err
		}
		if edge != nil {
			return apperror.Conflict("you are already friends with this user")
		}
		if err := checkNoPending(ctx, friends, from, to); err != nil {
			return err
		}

		if err := friends.CreateRequest(ctx, req); err != nil {
			return err
		}
		if err := friends.SetPairIndex(ctx, req); err != nil {
			return err
		}
		return repository.NewActivityRepository(tx).CreateActivity(ctx, s.activity(from, models.ActivityFriendRequestSent, req.ID, "sent a friend request"))
	})
	if err != nil {
		return nil, fail("send friend request", err, fields)
	}

	logrus.WithFields(fields).WithField("requestID", req.ID).Info("Friend request sent")
	s.publish(ctx, events.New(events.FriendRequestSent, from, to))
	return req, nil
}

// checkNoPending looks for a pending request in either direction, through
// the pair index and through direct queries for requests written without one.
func checkNoPending(ctx context.Context, friends *repository.FriendRepository, from, to string) error {
	indexed, err := friends.GetPairIndex(ctx, from, to)
	if err != nil {
		return err
	}
	if indexed != "" {
		existing, err := friends.GetRequestByID(ctx, indexed)
		if err != nil {
			return err
		}
		if err := pendingConflict(existing, from); err != nil {
			return err
		}
	}
	for _, pair := range [][2]string{{from, to}, {to, from}} {
		existing, err := friends.FindPendingRequest(ctx, pair[0], pair[1])
		if err != nil {
			return err
		}
		if err := pendingConflict(existing, from); err != nil {
			return err
		}
	}
	return nil
}

func pendingConflict(req *models.FriendRequest, from string) error {
	if req == nil || req.Status != models.FriendRequestPending {
		return nil
	}
	if req.FromUserID == from {
		return apperror.Conflict("friend request already sent")
	}
	return apperror.Conflict("this user has already sent you a friend request")
}

// AcceptRequest accepts requestID on behalf of actorID, who must be its
// recipient. fromUserID, when given, must match the sender. The status
// change and both friend edges are committed together.
func (s *FriendService) AcceptRequest(ctx context.Context, actorID, requestID, fromUserID string) (*models.FriendRequest, error) {
	fields := logrus.Fields{"actor": actorID, "requestID": requestID}
	if err := required("requestId", requestID); err != nil {
		return nil, fail("accept friend request", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var accepted *models.FriendRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		friends := repository.NewFriendRepository(tx)
		users := repository.NewUserRepository(tx)

		req, err := friends.GetRequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperror.NotFound("friend request", requestID)
		}
		if req.ToUserID != actorID {
			return apperror.Forbidden("only the recipient can accept this friend request")
		}
		if fromUserID != "" && req.FromUserID != fromUserID {
			return apperror.ValidationFailed("fromUserId", "friend request was not sent by this user")
		}
		if req.Status != models.FriendRequestPending {
			return apperror.Conflict("friend request already responded to")
		}

		from := req.FromUserID
		toEdge, err := friends.GetEdge(ctx, actorID, from)
		if err != nil {
			return err
		}
		fromEdge, err := friends.GetEdge(ctx, from, actorID)
		if err != nil {
			return err
		}
		accepter, err := users.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		sender, err := users.GetUser(ctx, from)
		if err != nil {
			return err
		}

		now := s.now()
		if err := friends.MarkAccepted(ctx, req.ID, now); err != nil {
			return err
		}
		if toEdge == nil {
			if err := friends.SetEdge(ctx, actorID, models.FriendEdge{UserID: from, AddedAt: now}); err != nil {
				return err
			}
			if accepter != nil {
				if err := users.IncrementCounter(ctx, actorID, repository.FieldFriends, 1); err != nil {
					return err
				}
			}
		}
		if fromEdge == nil {
			if err := friends.SetEdge(ctx, from, models.FriendEdge{UserID: actorID, AddedAt: now}); err != nil {
				return err
			}
			if sender != nil {
				if err := users.IncrementCounter(ctx, from, repository.FieldFriends, 1); err != nil {
					return err
				}
			}
		}
		if err := friends.DeletePairIndex(ctx, actorID, from); err != nil {
			return err
		}
		if err := repository.NewActivityRepository(tx).CreateActivity(ctx, s.activity(actorID, models.ActivityFriendRequestAccepted, req.ID, "accepted a friend request")); err != nil {
			return err
		}

		req.Status = models.FriendRequestAccepted
		req.AcceptedAt = &now
		accepted = req
		return nil
	})
	if err != nil {
		return nil, fail("accept friend request", err, fields)
	}

	logrus.WithFields(fields).Info("Friend request accepted")
	s.publish(ctx, events.New(events.FriendRequestAccepted, actorID, accepted.FromUserID))
	return accepted, nil
}

// RejectRequest deletes a pending request addressed to actorID. Rejecting a
// request that no longer exists succeeds.
func (s *FriendService) RejectRequest(ctx context.Context, actorID, requestID string) error {
	return s.closeRequest(ctx, actorID, requestID, false)
}

// CancelRequest deletes a pending request sent by actorID. Cancelling a
// request that no longer exists succeeds.
func (s *FriendService) CancelRequest(ctx context.Context, actorID, requestID string) error {
	return s.closeRequest(ctx, actorID, requestID, true)
}

func (s *FriendService) closeRequest(ctx context.Context, actorID, requestID string, cancelled bool) error {
	op, activityType, eventType := "reject friend request", models.ActivityFriendRequestRejected, events.FriendRequestRejected
	if cancelled {
		op, activityType, eventType = "cancel friend request", models.ActivityFriendRequestCancelled, events.FriendRequestCancelled
	}
	fields := logrus.Fields{"actor": actorID, "requestID": requestID}
	if err := required("requestId", requestID); err != nil {
		return fail(op, err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var closed *models.FriendRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		friends := repository.NewFriendRepository(tx)

		req, err := friends.GetRequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return nil
		}
		if cancelled && req.FromUserID != actorID {
			return apperror.Forbidden("only the sender can cancel this friend request")
		}
		if !cancelled && req.ToUserID != actorID {
			return apperror.Forbidden("only the recipient can reject this friend request")
		}
		if req.Status != models.FriendRequestPending {
			return apperror.Conflict("friend request already responded to")
		}
		indexed, err := friends.GetPairIndex(ctx, req.FromUserID, req.ToUserID)
		if err != nil {
			return err
		}

		if err := friends.DeleteRequest(ctx, req.ID); err != nil {
			return err
		}
		if indexed == req.ID {
			if err := friends.DeletePairIndex(ctx, req.FromUserID, req.ToUserID); err != nil {
				return err
			}
		}
		closed = req
		return repository.NewActivityRepository(tx).CreateActivity(ctx, s.activity(actorID, activityType, req.ID, op))
	})
	if err != nil {
		return fail(op, err, fields)
	}
	if closed == nil {
		logrus.WithFields(fields).Info("Friend request already gone")
		return nil
	}

	other := closed.FromUserID
	if cancelled {
		other = closed.ToUserID
	}
	logrus.WithFields(fields).Info("Friend request closed")
	s.publish(ctx, events.New(eventType, actorID, other))
	return nil
}

// GetFriendshipStatus reports how self relates to other. A friend edge wins
// over any pending request left behind.
func (s *FriendService) GetFriendshipStatus(ctx context.Context, self, other string) (*models.FriendshipStatus, error) {
	fields := logrus.Fields{"self": self, "other": other}
	if err := required("userId", other); err != nil {
		return nil, fail("get friendship status", err, fields)
	}
	if self == other {
		return nil, fail("get friendship status",
			apperror.ValidationFailed("userId", "cannot check friendship with yourself"), fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	friends := repository.NewFriendRepository(s.store)
	edge, err := friends.GetEdge(ctx, self, other)
	if err != nil {
		return nil, fail("get friendship status", err, fields)
	}
	if edge != nil {
		return &models.FriendshipStatus{Status: models.FriendshipFriends}, nil
	}

	candidates := make([]*models.FriendRequest, 0, 3)
	indexed, err := friends.GetPairIndex(ctx, self, other)
	if err != nil {
		return nil, fail("get friendship status", err, fields)
	}
	if indexed != "" {
		req, err := friends.GetRequestByID(ctx, indexed)
		if err != nil {
			return nil, fail("get friendship status", err, fields)
		}
		candidates = append(candidates, req)
	}
	for _, pair := range [][2]string{{self, other}, {other, self}} {
		req, err := friends.FindPendingRequest(ctx, pair[0], pair[1])
		if err != nil {
			return nil, fail("get friendship status", err, fields)
		}
		candidates = append(candidates, req)
	}

	for _, req := range candidates {
		if req == nil || req.Status != models.FriendRequestPending {
			continue
		}
		state := models.FriendshipPendingReceived
		if req.FromUserID == self {
			state = models.FriendshipPendingSent
		}
		return &models.FriendshipStatus{Status: state, RequestID: req.ID}, nil
	}
	return &models.FriendshipStatus{Status: models.FriendshipNone}, nil
}

// RemoveFriend deletes both friend edges in one transaction.
func (s *FriendService) RemoveFriend(ctx context.Context, self, other string) error {
	fields := logrus.Fields{"self": self, "other": other}
	if err := required("friendId", other); err != nil {
		return fail("remove friend", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		friends := repository.NewFriendRepository(tx)
		users := repository.NewUserRepository(tx)

		mine, err := friends.GetEdge(ctx, self, other)
		if err != nil {
			return err
		}
		theirs, err := friends.GetEdge(ctx, other, self)
		if err != nil {
			return err
		}
		if mine == nil && theirs == nil {
			return apperror.NotFound("friendship", other)
		}
		me, err := users.GetUser(ctx, self)
		if err != nil {
			return err
		}
		them, err := users.GetUser(ctx, other)
		if err != nil {
			return err
		}

		if mine != nil {
			if err := friends.DeleteEdge(ctx, self, other); err != nil {
				return err
			}
			if me != nil && me.Friends > 0 {
				if err := users.IncrementCounter(ctx, self, repository.FieldFriends, -1); err != nil {
					return err
				}
			}
		}
		if theirs != nil {
			if err := friends.DeleteEdge(ctx, other, self); err != nil {
				return err
			}
			if them != nil && them.Friends > 0 {
				if err := users.IncrementCounter(ctx, other, repository.FieldFriends, -1); err != nil {
					return err
				}
			}
		}
		return repository.NewActivityRepository(tx).CreateActivity(ctx, s.activity(self, models.ActivityFriendRemoved, other, "removed a friend"))
	})
	if err != nil {
		return fail("remove friend", err, fields)
	}

	logrus.WithFields(fields).Info("Friend removed")
	s.publish(ctx, events.New(events.FriendRemoved, self, other))
	return nil
}

// ListFriends returns the friend edges of userID.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]models.FriendEdge, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	edges, err := repository.NewFriendRepository(s.store).GetFriends(ctx, userID)
	if err != nil {
		return nil, fail("list friends", err, logrus.Fields{"userID": userID})
	}
	return edges, nil
}

// ListIncomingRequests returns the pending requests sent to userID.
func (s *FriendService) ListIncomingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reqs, err := repository.NewFriendRepository(s.store).GetRequestsByReceiver(ctx, userID)
	if err != nil {
		return nil, fail("list friend requests", err, logrus.Fields{"userID": userID})
	}
	return reqs, nil
}

// ListOutgoingRequests returns the pending requests sent by userID.
func (s *FriendService) ListOutgoingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reqs, err := repository.NewFriendRepository(s.store).GetRequestsBySender(ctx, userID)
	if err != nil {
		return nil, fail("list sent friend requests", err, logrus.Fields{"userID": userID})
	}
	return reqs, nil
}
