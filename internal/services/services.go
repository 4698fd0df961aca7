// Package services implements the relationship operations: friend requests,
// follows, community membership and user status. Every operation that
// touches more than one document runs in a single store transaction.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/events"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errBatchRead = errors.New("batch writes cannot read")

// DefaultTimeout bounds one operation when no timeout is configured.
const DefaultTimeout = 20 * time.Second

// core is what every relationship service shares.
type core struct {
	store     docstore.Store
	publisher events.Publisher
	timeout   time.Duration
	now       func() time.Time
}

func newCore(store docstore.Store, publisher events.Publisher, timeout time.Duration) core {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return core{
		store:     store,
		publisher: publisher,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (c *core) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// publish sends ev after a commit. Failures are logged only.
func (c *core) publish(ctx context.Context, ev events.Event) {
	if err := c.publisher.Publish(ctx, ev); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":  ev.Type,
			"actor":  ev.ActorID,
			"target": ev.TargetID,
		}).Warn("Failed to publish relationship event")
	}
}

// fail passes AppErrors through and wraps anything else as a transient store
// failure. Either way the failure is logged.
func fail(op string, err error, fields logrus.Fields) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		logrus.WithFields(fields).WithField("reason", appErr.Message).Warn("Rejected " + op)
		return err
	}
	logrus.WithError(err).WithFields(fields).Error("Failed to " + op)
	return apperror.Transient(op, err)
}

// activity builds an audit record for the activities collection.
func (c *core) activity(actor, activityType, target, message string) *models.Activity {
	return &models.Activity{
		ID:        uuid.NewString(),
		UserID:    actor,
		Type:      activityType,
		TargetID:  target,
		Timestamp: c.now(),
		Message:   message,
	}
}

func required(field, value string) error {
	if value == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
