package services

import (
	"context"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// ActivityService reads the audit trail written by the relationship services.
type ActivityService struct {
	core
}

func NewActivityService(store docstore.Store, timeout time.Duration) *ActivityService {
	return &ActivityService{core: newCore(store, events.NopPublisher{}, timeout)}
}

// GetRecentActivities returns recent actions performed by a user
func (s *ActivityService) GetRecentActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	activities, err := repository.NewActivityRepository(s.store).GetUserActivities(ctx, userID, limit)
	if err != nil {
		return nil, fail("get activities", err, logrus.Fields{"userID": userID})
	}
	return activities, nil
}
