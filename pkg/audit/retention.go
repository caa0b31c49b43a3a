package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/almoud/foodcost/pkg/observability"
)

// RetentionJob periodically deletes audit events past their retention window.
type RetentionJob struct {
	store     *DBStore
	retention time.Duration
	schedule  string
	logger    *observability.Logger
	cron      *cron.Cron
}

// NewRetentionJob creates a retention job. The schedule is a standard cron
// expression; retention is how far back events are kept.
func NewRetentionJob(store *DBStore, retention time.Duration, schedule string, logger *observability.Logger) *RetentionJob {
	return &RetentionJob{
		store:     store,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start begins the retention schedule.
func (j *RetentionJob) Start() error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(j.schedule, j.run)
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.WithFields(map[string]interface{}{
		"schedule":  j.schedule,
		"retention": j.retention.String(),
	}).Info("audit retention job started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *RetentionJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// RunOnce performs a single retention sweep.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-j.retention)
	return j.store.DeleteOlderThan(ctx, cutoff)
}

func (j *RetentionJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.WithError(err).Error("audit retention sweep failed")
		return
	}
	j.logger.WithField("deleted", deleted).Info("audit retention sweep completed")
}
