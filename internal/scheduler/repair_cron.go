package scheduler

import (
	"context"
	"time"

	"github.com/Dias221467/Social_Graph/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// repairTimeout bounds one scheduled repair run.
const repairTimeout = 30 * time.Minute

// StartRepairCronJobs runs every reconciliation pass on schedule. An empty
// schedule leaves repairs manual and returns a nil Cron.
func StartRepairCronJobs(schedule string, reconciler *jobs.Reconciler) (*cron.Cron, error) {
	if schedule == "" {
		logrus.Info("Repair schedule not configured, reconciliation stays manual")
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), repairTimeout)
		defer cancel()
		if err := reconciler.RunAll(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled reconciliation failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logrus.WithField("schedule", schedule).Info("Repair cron started")
	return c, nil
}
