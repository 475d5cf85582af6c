package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

type tokenPurgeRepo interface {
	DeleteDeadTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenPurgeJobParams configure the refresh token purge job.
type TokenPurgeJobParams struct {
	Logger     *logger.Logger
	Repository tokenPurgeRepo
}

// NewTokenPurgeJob builds the job that deletes expired and revoked
// refresh tokens. Tokens are purged as soon as they are dead; there is
// no grace period because a dead token can never be redeemed again.
func NewTokenPurgeJob(params TokenPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("token repository required")
	}
	return &tokenPurgeJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type tokenPurgeJob struct {
	logg *logger.Logger
	repo tokenPurgeRepo
	now  func() time.Time
}

func (j *tokenPurgeJob) Name() string { return "refresh-token-purge" }

func (j *tokenPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	deleted, err := j.repo.DeleteDeadTokens(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_deleted", deleted)
	j.logg.Info(logCtx, "refresh token purge complete")
	return nil
}
