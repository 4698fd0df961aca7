package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Dias221467/Social_Graph/internal/cache"
	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

const maxStatusLength = 100

// StatusService manages the current status line and saved custom statuses
// stored on the user document.
type StatusService struct {
	core
	cache cache.StatusCache
	gens  *generations
}

const generationStripes = 256

// generations counts invalidations per user, striped by id hash. A read only
// fills the cache if no invalidation of its stripe happened since it started.
type generations struct {
	mu    [generationStripes]sync.Mutex
	count [generationStripes]uint64
}

func stripe(userID string) uint64 {
	return xxhash.Sum64String(userID) % generationStripes
}

func (g *generations) current(userID string) uint64 {
	i := stripe(userID)
	g.mu[i].Lock()
	defer g.mu[i].Unlock()
	return g.count[i]
}

func (g *generations) bump(userID string) {
	i := stripe(userID)
	g.mu[i].Lock()
	g.count[i]++
	g.mu[i].Unlock()
}

// ifCurrent runs fn while holding the stripe lock when gen is still current.
func (g *generations) ifCurrent(userID string, gen uint64, fn func()) bool {
	i := stripe(userID)
	g.mu[i].Lock()
	defer g.mu[i].Unlock()
	if g.count[i] != gen {
		return false
	}
	fn()
	return true
}

func NewStatusService(store docstore.Store, statusCache cache.StatusCache, publisher events.Publisher, timeout time.Duration) *StatusService {
	if statusCache == nil {
		statusCache = cache.NewMemoryStatusCache(time.Minute)
	}
	return &StatusService{
		core:  newCore(store, publisher, timeout),
		cache: statusCache,
		gens:  &generations{},
	}
}

// StatusOption tunes GetUserStatus.
type StatusOption func(*statusOptions)

type statusOptions struct {
	bypassCache bool
}

// BypassCache makes GetUserStatus read the user document.
func BypassCache() StatusOption {
	return func(o *statusOptions) { o.bypassCache = true }
}

func validStatus(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperror.ValidationFailed("status", "status cannot be empty")
	}
	if len(text) > maxStatusLength {
		return "", apperror.ValidationFailed("status", "status is too long")
	}
	return text, nil
}

// UpdateStatus sets the current status of userID.
func (s *StatusService) UpdateStatus(ctx context.Context, userID, text string) (*models.UserStatus, error) {
	fields := logrus.Fields{"userID": userID}
	text, err := validStatus(text)
	if err != nil {
		return nil, fail("update status", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	if err := repository.NewUserRepository(s.store).SetStatus(ctx, userID, text, now); err != nil {
		return nil, fail("update status", userMissing(err, userID), fields)
	}
	s.invalidate(ctx, userID)

	logrus.WithFields(fields).Info("Status updated")
	s.publish(ctx, events.New(events.StatusChanged, userID, userID))
	return &models.UserStatus{UserID: userID, Text: text, UpdatedAt: now}, nil
}

// GetUserStatus returns the current status of userID, nil when none is set.
func (s *StatusService) GetUserStatus(ctx context.Context, userID string, opts ...StatusOption) (*models.UserStatus, error) {
	var o statusOptions
	for _, opt := range opts {
		opt(&o)
	}
	fields := logrus.Fields{"userID": userID}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !o.bypassCache {
		status, found, err := s.cache.Get(ctx, userID)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Warn("Status cache read failed")
		} else if found {
			return status, nil
		}
	}

	gen := s.gens.current(userID)
	status, exists, err := repository.NewUserRepository(s.store).GetStatus(ctx, userID)
	if err != nil {
		return nil, fail("get user status", err, fields)
	}
	if !exists {
		return nil, fail("get user status", apperror.NotFound("user", userID), fields)
	}
	cached := s.gens.ifCurrent(userID, gen, func() {
		if err := s.cache.Set(ctx, userID, status); err != nil {
			logrus.WithError(err).WithFields(fields).Warn("Status cache write failed")
		}
	})
	if !cached {
		logrus.WithFields(fields).Debug("Status changed during read, not caching")
	}
	return status, nil
}

// ClearStatus removes the current status of userID.
func (s *StatusService) ClearStatus(ctx context.Context, userID string) error {
	fields := logrus.Fields{"userID": userID}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := repository.NewUserRepository(s.store).ClearStatus(ctx, userID, s.now()); err != nil {
		return fail("clear status", userMissing(err, userID), fields)
	}
	s.invalidate(ctx, userID)

	logrus.WithFields(fields).Info("Status cleared")
	s.publish(ctx, events.New(events.StatusChanged, userID, userID))
	return nil
}

// AddCustomStatus saves text as a custom status and makes it current. A
// duplicate is rejected without touching the list.
func (s *StatusService) AddCustomStatus(ctx context.Context, userID, text string) ([]string, error) {
	fields := logrus.Fields{"userID": userID}
	if strings.TrimSpace(text) == "" {
		return nil, fail("add custom status", apperror.ValidationFailed("status", "custom status cannot be empty"), fields)
	}
	text, err := validStatus(text)
	if err != nil {
		return nil, fail("add custom status", err, fields)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var saved []string
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperror.NotFound("user", userID)
		}
		if contains(user.CustomStatuses, text) {
			return apperror.Conflict("custom status already exists")
		}
		if err := users.AddCustomStatus(ctx, userID, text, s.now()); err != nil {
			return err
		}
		saved = append(user.CustomStatuses, text)
		return nil
	})
	if err != nil {
		return nil, fail("add custom status", err, fields)
	}
	s.invalidate(ctx, userID)

	logrus.WithFields(fields).Info("Custom status added")
	s.publish(ctx, events.New(events.StatusChanged, userID, userID))
	return saved, nil
}

// RemoveCustomStatus deletes text from the saved custom statuses. The current
// status is left as it is.
func (s *StatusService) RemoveCustomStatus(ctx context.Context, userID, text string) ([]string, error) {
	fields := logrus.Fields{"userID": userID}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var remaining []string
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperror.NotFound("user", userID)
		}
		if !contains(user.CustomStatuses, text) {
			return apperror.NotFound("custom status", text)
		}
		for _, st := range user.CustomStatuses {
			if st != text {
				remaining = append(remaining, st)
			}
		}
		return users.RemoveCustomStatus(ctx, userID, text)
	})
	if err != nil {
		return nil, fail("remove custom status", err, fields)
	}
	return remaining, nil
}

func (s *StatusService) ListCustomStatuses(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := repository.NewUserRepository(s.store).GetUser(ctx, userID)
	if err != nil {
		return nil, fail("list custom statuses", err, logrus.Fields{"userID": userID})
	}
	if user == nil {
		return nil, fail("list custom statuses", apperror.NotFound("user", userID), logrus.Fields{"userID": userID})
	}
	return user.CustomStatuses, nil
}

// SubscribeToUserStatus calls fn with the current status of userID and then
// with every change to it, until stop is called or ctx ends. fn runs on a
// separate goroutine and receives nil when the status is cleared.
func (s *StatusService) SubscribeToUserStatus(ctx context.Context, userID string, fn func(*models.UserStatus)) (stop func(), err error) {
	sub, err := s.store.Watch(ctx, repository.UserDoc(userID))
	if err != nil {
		return nil, fail("subscribe to user status", err, logrus.Fields{"userID": userID})
	}

	go func() {
		first := true
		var last *models.UserStatus
		for snap := range sub.Changes() {
			status := repository.StatusOf(snap)
			if !first && sameStatus(last, status) {
				continue
			}
			first = false
			last = status
			fn(status)
		}
		if err := sub.Err(); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).WithField("userID", userID).Warn("Status subscription ended")
		}
	}()
	return sub.Stop, nil
}

func sameStatus(a, b *models.UserStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Text == b.Text && a.UpdatedAt.Equal(b.UpdatedAt)
}

func (s *StatusService) invalidate(ctx context.Context, userID string) {
	s.gens.bump(userID)
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logrus.WithError(err).WithField("userID", userID).Warn("Status cache invalidation failed")
	}
}

// userMissing turns a failed update of a missing user document into NotFound.
func userMissing(err error, userID string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return apperror.NotFound("user", userID)
	}
	return err
}
