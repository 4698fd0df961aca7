package database

import (
	"context"
	"testing"
	"time"

	"github.com/Dias221467/Social_Graph/internal/cache"
	"github.com/Dias221467/Social_Graph/internal/config"
	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectDBMemory(t *testing.T) {
	store, err := ConnectDB(context.Background(), config.Config{Store: config.StoreConfig{Backend: "memory"}})
	require.NoError(t, err)
	assert.IsType(t, &docstore.MemoryStore{}, store)
}

func TestConnectDBRejectsUnknownBackend(t *testing.T) {
	_, err := ConnectDB(context.Background(), config.Config{Store: config.StoreConfig{Backend: "cassandra"}})
	assert.Error(t, err)
}

func TestConnectDBFirestoreNeedsProject(t *testing.T) {
	_, err := ConnectDB(context.Background(), config.Config{Store: config.StoreConfig{Backend: "firestore"}})
	assert.Error(t, err)
}

func TestNewStatusCacheWithoutRedis(t *testing.T) {
	c, closeFn, err := NewStatusCache(context.Background(), config.RedisConfig{TTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStatusCache{}, c)
	assert.NoError(t, closeFn())
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	p, err := NewPublisher(config.KafkaConfig{})
	require.NoError(t, err)
	assert.IsType(t, events.NopPublisher{}, p)
}
