package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	fieldType      = "type"
	fieldTargetID  = "target_id"
	fieldTimestamp = "timestamp"
	fieldMessage   = "message"
	fieldActor     = "user_id"
)

type ActivityRepository struct {
	db docstore.ReadWriter
}

func NewActivityRepository(db docstore.ReadWriter) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateActivity writes an activity log entry under activity.ID
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	err := r.db.Set(ctx, docstore.Doc(ActivitiesCollection, activity.ID), docstore.Fields{
		fieldActor:     activity.UserID,
		fieldType:      activity.Type,
		fieldTargetID:  activity.TargetID,
		fieldTimestamp: activity.Timestamp,
		fieldMessage:   activity.Message,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to insert activity")
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// GetUserActivities fetches recent activities of a specific user
func (r *ActivityRepository) GetUserActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	q := docstore.NewQuery(ActivitiesCollection).
		Where(fieldActor, docstore.Equal, userID).
		Order(fieldTimestamp, true).
		Limit(limit)
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	activities := make([]models.Activity, 0, len(snaps))
	for _, snap := range snaps {
		d := snap.Data
		activities = append(activities, models.Activity{
			ID:        snap.ID,
			UserID:    d.String(fieldActor),
			Type:      d.String(fieldType),
			TargetID:  d.String(fieldTargetID),
			Timestamp: d.Time(fieldTimestamp),
			Message:   d.String(fieldMessage),
		})
	}
	return activities, nil
}
