package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// UserService manages the profile documents of users known to the identity
// provider.
type UserService struct {
	core
}

// NewUserService creates a new instance of UserService.
func NewUserService(store docstore.Store, timeout time.Duration) *UserService {
	return &UserService{core: newCore(store, events.NopPublisher{}, timeout)}
}

// EnsureUser creates the user document with zeroed counters on first sight
// and keeps the display name current afterwards.
func (s *UserService) EnsureUser(ctx context.Context, id, displayName string) (*models.User, error) {
	fields := logrus.Fields{"userID": id}
	if err := required("userId", id); err != nil {
		return nil, fail("register user", err, fields)
	}
	displayName = strings.TrimSpace(displayName)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *models.User
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			user = &models.User{ID: id, DisplayName: displayName, CreatedAt: s.now()}
			if err := users.CreateUser(ctx, user); err != nil {
				return err
			}
			logrus.WithFields(fields).Info("User registered")
		} else if displayName != "" && displayName != user.DisplayName {
			if err := users.UpdateDisplayName(ctx, id, displayName); err != nil {
				return err
			}
			user.DisplayName = displayName
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, fail("register user", err, fields)
	}
	return result, nil
}

// GetUserByID retrieves a user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := repository.NewUserRepository(s.store).GetUser(ctx, id)
	if err != nil {
		return nil, fail("get user", err, logrus.Fields{"userID": id})
	}
	if user == nil {
		return nil, fail("get user", apperror.NotFound("user", id), logrus.Fields{"userID": id})
	}
	return user, nil
}

// UpdateLastActive stamps the user's lastActiveAt with the current time. A
// missing user yields NotFound without a log entry.
func (s *UserService) UpdateLastActive(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := repository.NewUserRepository(s.store).UpdateLastActive(ctx, id, s.now())
	if errors.Is(err, docstore.ErrNotFound) {
		return apperror.NotFound("user", id)
	}
	if err != nil {
		return fail("update last active", err, logrus.Fields{"userID": id})
	}
	return nil
}
