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
	fieldDisplayName     = "displayName"
	fieldStatus          = "status"
	fieldStatusUpdatedAt = "statusUpdatedAt"
	fieldCustomStatuses  = "customStatuses"
	fieldLastActiveAt    = "lastActiveAt"
	fieldCreatedAt       = "createdAt"
)

// UserRepository handles user documents: counters, status and activity.
// Build it on the store, or on a transaction to take part in one.
type UserRepository struct {
	db docstore.ReadWriter
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db docstore.ReadWriter) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser returns the user document, or nil when it does not exist.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := r.db.Get(ctx, UserDoc(id))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID": id,
			"error":  err,
		}).Warn("Failed to read user")
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	if !snap.Exists {
		return nil, nil
	}
	return decodeUser(snap), nil
}

// CreateUser writes a fresh user document with zeroed counters.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := r.db.Set(ctx, UserDoc(user.ID), docstore.Fields{
		fieldDisplayName:    user.DisplayName,
		FieldFollowersCount: user.FollowersCount,
		FieldFollowingCount: user.FollowingCount,
		FieldFriends:        user.Friends,
		fieldCreatedAt:      user.CreatedAt,
	})
	if err != nil {
		logrus.WithError(err).WithField("userID", user.ID).Error("Failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateDisplayName(ctx context.Context, id, name string) error {
	if err := r.db.Update(ctx, UserDoc(id), docstore.SetField(fieldDisplayName, name)); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

// IncrementCounter adds delta to one of the aggregate counters.
func (r *UserRepository) IncrementCounter(ctx context.Context, id, field string, delta int64) error {
	if err := r.db.Update(ctx, UserDoc(id), docstore.Increment(field, delta)); err != nil {
		return fmt.Errorf("failed to update %s of user %s: %w", field, id, err)
	}
	return nil
}

// UpdateLastActive sets the lastActiveAt timestamp.
func (r *UserRepository) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	if err := r.db.Update(ctx, UserDoc(id), docstore.SetField(fieldLastActiveAt, at)); err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

func (r *UserRepository) SetStatus(ctx context.Context, id, text string, at time.Time) error {
	err := r.db.Update(ctx, UserDoc(id),
		docstore.SetField(fieldStatus, text),
		docstore.SetField(fieldStatusUpdatedAt, at),
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearStatus(ctx context.Context, id string, at time.Time) error {
	err := r.db.Update(ctx, UserDoc(id),
		docstore.DeleteField(fieldStatus),
		docstore.SetField(fieldStatusUpdatedAt, at),
	)
	if err != nil {
		return fmt.Errorf("failed to clear status: %w", err)
	}
	return nil
}

// AddCustomStatus saves text in the custom list and makes it the current status.
func (r *UserRepository) AddCustomStatus(ctx context.Context, id, text string, at time.Time) error {
	err := r.db.Update(ctx, UserDoc(id),
		docstore.ArrayUnion(fieldCustomStatuses, text),
		docstore.SetField(fieldStatus, text),
		docstore.SetField(fieldStatusUpdatedAt, at),
	)
	if err != nil {
		return fmt.Errorf("failed to add custom status: %w", err)
	}
	return nil
}

func (r *UserRepository) RemoveCustomStatus(ctx context.Context, id, text string) error {
	if err := r.db.Update(ctx, UserDoc(id), docstore.ArrayRemove(fieldCustomStatuses, text)); err != nil {
		return fmt.Errorf("failed to remove custom status: %w", err)
	}
	return nil
}

// ListUserIDs returns the id of every user document.
func (r *UserRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	snaps, err := r.db.Query(ctx, docstore.NewQuery(UsersCollection))
	if err != nil {
		logrus.WithError(err).Error("Failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID)
	}
	return ids, nil
}

// StatusOf extracts the status line from a user document snapshot. It is
// used by status subscriptions, which receive raw snapshots.
func StatusOf(snap *docstore.Snapshot) *models.UserStatus {
	if snap == nil || !snap.Exists || !snap.Data.Has(fieldStatus) {
		return nil
	}
	return &models.UserStatus{
		UserID:    snap.ID,
		Text:      snap.Data.String(fieldStatus),
		UpdatedAt: snap.Data.Time(fieldStatusUpdatedAt),
	}
}

func decodeUser(snap *docstore.Snapshot) *models.User {
	d := snap.Data
	user := &models.User{
		ID:             snap.ID,
		DisplayName:    d.String(fieldDisplayName),
		FollowersCount: d.Int64(FieldFollowersCount),
		FollowingCount: d.Int64(FieldFollowingCount),
		Friends:        d.Int64(FieldFriends),
		Status:         d.String(fieldStatus),
		CustomStatuses: d.Strings(fieldCustomStatuses),
		CreatedAt:      d.Time(fieldCreatedAt),
	}
	if d.Has(fieldLastActiveAt) {
		at := d.Time(fieldLastActiveAt)
		user.LastActiveAt = &at
	}
	return user
}

// GetStatus returns the current status of the user, nil when none is set,
// and whether the user document exists.
func (r *UserRepository) GetStatus(ctx context.Context, id string) (*models.UserStatus, bool, error) {
	snap, err := r.db.Get(ctx, UserDoc(id))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read status: %w", err)
	}
	if !snap.Exists {
		return nil, false, nil
	}
	return StatusOf(snap), true, nil
}
