package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dias221467/Social_Graph/internal/cache"
	"github.com/Dias221467/Social_Graph/internal/config"
	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/docstore/firestorestore"
	"github.com/Dias221467/Social_Graph/internal/docstore/mongostore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 10 * time.Second

// ConnectDB opens the document store selected by cfg.Store.Backend.
func ConnectDB(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch strings.ToLower(cfg.Store.Backend) {
	case "", "memory":
		logger.Log.Warn("Using in-memory store, data is lost on restart")
		return docstore.NewMemoryStore(), nil

	case "mongo", "mongodb":
		store, err := mongostore.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		logger.Log.WithField("database", cfg.Store.MongoDatabase).Info("Connected to MongoDB")
		return store, nil

	case "firestore":
		if cfg.Store.FirestoreProject == "" {
			return nil, fmt.Errorf("STORE_FIRESTORE_PROJECT is required for the firestore backend")
		}
		store, err := firestorestore.Connect(ctx, cfg.Store.FirestoreProject, cfg.Store.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Firestore: %w", err)
		}
		logger.Log.WithField("project", cfg.Store.FirestoreProject).Info("Connected to Firestore")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewStatusCache returns a Redis-backed cache when REDIS_ADDR is set and an
// in-process one otherwise. The returned close func is never nil.
func NewStatusCache(ctx context.Context, cfg config.RedisConfig) (cache.StatusCache, func() error, error) {
	if cfg.Addr == "" {
		return cache.NewMemoryStatusCache(cfg.TTL), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	logger.Log.WithField("addr", cfg.Addr).Info("Connected to Redis")
	return cache.NewRedisStatusCache(client, cfg.TTL), client.Close, nil
}

// NewPublisher returns a Kafka publisher when brokers are configured.
func NewPublisher(cfg config.KafkaConfig) (events.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("topic", cfg.Topic).Info("Publishing relationship events to Kafka")
	return p, nil
}
