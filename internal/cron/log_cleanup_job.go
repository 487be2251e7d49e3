package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

const defaultLogRetention = 30 * 24 * time.Hour

type notificationLog interface {
	Cleanup(cutoff time.Time) int
}

type LogCleanupJobParams struct {
	Logger    *logger.Logger
	Log       notificationLog
	Retention time.Duration
}

func NewLogCleanupJob(params LogCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("notification log required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultLogRetention
	}
	return &logCleanupJob{
		logg:      params.Logger,
		log:       params.Log,
		retention: retention,
		now:       time.Now,
	}, nil
}

type logCleanupJob struct {
	logg      *logger.Logger
	log       notificationLog
	retention time.Duration
	now       func() time.Time
}

func (j *logCleanupJob) Name() string { return "notification-log-cleanup" }

func (j *logCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	removed := j.log.Cleanup(cutoff)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"retention_hours": j.retention.Hours(),
		"entries_removed": removed,
	})
	j.logg.Info(logCtx, "notification log cleanup complete")
	return nil
}
