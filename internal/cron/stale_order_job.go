package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
)

const (
	defaultStaleOrderAge = 24 * time.Hour
	staleOrderBatchSize  = 100
)

type staleOrderReader interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*orders.OrderDTO, error)
}

// StaleOrderJobParams configure the stale pending order job.
type StaleOrderJobParams struct {
	Logger *logger.Logger
	Reader staleOrderReader
	Orders orderCanceller
	MaxAge time.Duration
}

// NewStaleOrderJob builds the job that cancels orders stuck in PENDING.
// Cancelling through the order service restocks items and emits the
// cancellation event like any other cancel.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleOrderAge
	}
	return &staleOrderJob{
		logg:   params.Logger,
		reader: params.Reader,
		orders: params.Orders,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type staleOrderJob struct {
	logg   *logger.Logger
	reader staleOrderReader
	orders orderCanceller
	maxAge time.Duration
	now    func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-order-cancel" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.reader.FindStalePending(ctx, cutoff, staleOrderBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range stale {
		if _, err := j.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, nil); err != nil {
			// The order may have moved on between the query and the
			// cancel. That is not a failure, just a lost race.
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
				continue
			}
			errs = append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"found":     len(stale),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "stale order sweep complete")
	return multierr.Combine(errs...)
}
