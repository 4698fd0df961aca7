package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dias221467/Social_Graph/internal/cache"
	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStoreWithUsers(t, "u")
	svc := NewStatusService(store, cache.NewMemoryStatusCache(time.Minute), nil, 0)

	_, err := svc.UpdateStatus(ctx, "u", "Busy")
	require.NoError(t, err)

	status, err := svc.GetUserStatus(ctx, "u", BypassCache())
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "Busy", status.Text)

	require.NoError(t, svc.ClearStatus(ctx, "u"))
	status, err = svc.GetUserStatus(ctx, "u", BypassCache())
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestGetUserStatusUsesCache(t *testing.T) {
	ctx := context.Background()
	store := newStoreWithUsers(t, "u")
	statusCache := cache.NewMemoryStatusCache(time.Minute)
	svc := NewStatusService(store, statusCache, nil, 0)

	_, err := svc.UpdateStatus(ctx, "u", "Busy")
	require.NoError(t, err)
	status, err := svc.GetUserStatus(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Busy", status.Text)

	// A write behind the service's back is invisible until the cache is bypassed.
	require.NoError(t, repository.NewUserRepository(store).SetStatus(ctx, "u", "Away", time.Now()))
	status, err = svc.GetUserStatus(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Busy", status.Text)

	status, err = svc.GetUserStatus(ctx, "u", BypassCache())
	require.NoError(t, err)
	assert.Equal(t, "Away", status.Text)

	_, err = svc.UpdateStatus(ctx, "u", "Online")
	require.NoError(t, err)
	status, err = svc.GetUserStatus(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Online", status.Text)
}

func TestUpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewStatusService(newStoreWithUsers(t, "u"), nil, nil, 0)

	_, err := svc.UpdateStatus(ctx, "u", "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateStatus(ctx, "ghost", "Busy")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetUserStatus(ctx, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCustomStatusIsUnique(t *testing.T) {
	ctx := context.Background()
	store := newStoreWithUsers(t, "u")
	svc := NewStatusService(store, nil, nil, 0)

	saved, err := svc.AddCustomStatus(ctx, "u", "Gaming")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaming"}, saved)

	status, err := svc.GetUserStatus(ctx, "u", BypassCache())
	require.NoError(t, err)
	assert.Equal(t, "Gaming", status.Text)

	before := store.Writes()
	_, err = svc.AddCustomStatus(ctx, "u", "Gaming")
	require.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "custom status already exists", apperror.Message(err))
	assert.Equal(t, before, store.Writes())

	list, err := svc.ListCustomStatuses(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaming"}, list)

	_, err = svc.AddCustomStatus(ctx, "u", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRemoveCustomStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewStatusService(newStoreWithUsers(t, "u"), nil, nil, 0)
	_, err := svc.AddCustomStatus(ctx, "u", "Gaming")
	require.NoError(t, err)
	_, err = svc.AddCustomStatus(ctx, "u", "Studying")
	require.NoError(t, err)

	remaining, err := svc.RemoveCustomStatus(ctx, "u", "Gaming")
	require.NoError(t, err)
	assert.Equal(t, []string{"Studying"}, remaining)

	_, err = svc.RemoveCustomStatus(ctx, "u", "Gaming")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSubscribeToUserStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewStatusService(newStoreWithUsers(t, "u"), nil, nil, 0)

	var mu sync.Mutex
	var seen []string
	stop, err := svc.SubscribeToUserStatus(ctx, "u", func(s *models.UserStatus) {
		mu.Lock()
		defer mu.Unlock()
		if s == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, s.Text)
	})
	require.NoError(t, err)
	defer stop()

	_, err = svc.UpdateStatus(ctx, "u", "Busy")
	require.NoError(t, err)
	require.NoError(t, svc.ClearStatus(ctx, "u"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"", "Busy", ""}, seen)
	mu.Unlock()
}

// pausingStore blocks the first read of one document after it completes,
// until release is closed.
type pausingStore struct {
	*docstore.MemoryStore
	path    string
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func (s *pausingStore) Get(ctx context.Context, path string) (*docstore.Snapshot, error) {
	snap, err := s.MemoryStore.Get(ctx, path)
	if path == s.path {
		s.once.Do(func() {
			close(s.paused)
			<-s.release
		})
	}
	return snap, err
}

func TestGetUserStatusDoesNotCacheStaleRead(t *testing.T) {
	ctx := context.Background()
	mem := newStoreWithUsers(t, "u")
	require.NoError(t, repository.NewUserRepository(mem).SetStatus(ctx, "u", "Old", time.Now()))
	store := &pausingStore{
		MemoryStore: mem,
		path:        repository.UserDoc("u"),
		paused:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc := NewStatusService(store, cache.NewMemoryStatusCache(time.Minute), nil, 0)

	done := make(chan *models.UserStatus)
	go func() {
		status, err := svc.GetUserStatus(ctx, "u")
		assert.NoError(t, err)
		done <- status
	}()

	<-store.paused
	_, err := svc.UpdateStatus(ctx, "u", "Busy")
	require.NoError(t, err)
	close(store.release)
	assert.Equal(t, "Old", (<-done).Text)

	status, err := svc.GetUserStatus(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Busy", status.Text)
}
