// Package cache holds the user status cache read by GetUserStatus.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Dias221467/Social_Graph/internal/models"
)

// StatusCache caches the current status of users. A nil status means the
// user has no status; Get reports found=false for a cache miss.
type StatusCache interface {
	Get(ctx context.Context, userID string) (status *models.UserStatus, found bool, err error)
	Set(ctx context.Context, userID string, status *models.UserStatus) error
	Invalidate(ctx context.Context, userID string) error
}

type memoryEntry struct {
	status  *models.UserStatus
	expires time.Time
}

// MemoryStatusCache is an in-process StatusCache.
type MemoryStatusCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStatusCache(ttl time.Duration) *MemoryStatusCache {
	return &MemoryStatusCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryStatusCache) Get(_ context.Context, userID string) (*models.UserStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		delete(c.entries, userID)
		return nil, false, nil
	}
	return copyStatus(e.status), true, nil
}

func (c *MemoryStatusCache) Set(_ context.Context, userID string, status *models.UserStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = memoryEntry{status: copyStatus(status), expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryStatusCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

func copyStatus(s *models.UserStatus) *models.UserStatus {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
