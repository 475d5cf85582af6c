package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

const defaultNotificationAge = 30 * 24 * time.Hour

type notificationPruneRepo interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationPruneJobParams configure the read notification prune job.
type NotificationPruneJobParams struct {
	Logger     *logger.Logger
	Repository notificationPruneRepo
	MaxAge     time.Duration
}

// NewNotificationPruneJob builds the job that deletes notifications the
// recipient already read. Unread notifications are kept indefinitely.
func NewNotificationPruneJob(params NotificationPruneJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultNotificationAge
	}
	return &notificationPruneJob{
		logg:   params.Logger,
		repo:   params.Repository,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type notificationPruneJob struct {
	logg   *logger.Logger
	repo   notificationPruneRepo
	maxAge time.Duration
	now    func() time.Time
}

func (j *notificationPruneJob) Name() string { return "read-notification-prune" }

func (j *notificationPruneJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune read notifications: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "read notification prune complete")
	return nil
}
