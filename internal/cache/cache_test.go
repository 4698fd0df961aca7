package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatusCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStatusCache(time.Minute)

	_, found, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "u1", &models.UserStatus{UserID: "u1", Text: "Busy"}))
	status, found, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Busy", status.Text)

	require.NoError(t, c.Set(ctx, "u1", nil))
	status, found, _ = c.Get(ctx, "u1")
	assert.True(t, found)
	assert.Nil(t, status)

	require.NoError(t, c.Invalidate(ctx, "u1"))
	_, found, _ = c.Get(ctx, "u1")
	assert.False(t, found)
}

func TestMemoryStatusCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStatusCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "u1", &models.UserStatus{Text: "Away"}))
	now = now.Add(2 * time.Minute)

	_, found, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

// TestRedisStatusCache runs only when REDIS_TEST_ADDR is set.
func TestRedisStatusCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	c := NewRedisStatusCache(client, time.Minute)
	user := "test-" + time.Now().Format("150405.000000")
	defer c.Invalidate(ctx, user)

	require.NoError(t, c.Set(ctx, user, &models.UserStatus{UserID: user, Text: "Gaming"}))
	status, found, err := c.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Gaming", status.Text)

	require.NoError(t, c.Set(ctx, user, nil))
	status, found, err = c.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, status)
}
