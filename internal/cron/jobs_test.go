package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
)

type fakeStaleReader struct {
	orders     []models.Order
	err        error
	lastCutoff time.Time
}

func (f *fakeStaleReader) FindStalePending(_ context.Context, cutoff time.Time, _ int) ([]models.Order, error) {
	f.lastCutoff = cutoff
	return f.orders, f.err
}

type fakeCanceller struct {
	cancelled []uuid.UUID
	errByID   map[uuid.UUID]error
}

func (f *fakeCanceller) UpdateStatus(_ context.Context, orderID uuid.UUID, status enums.OrderStatus, _ *outbox.ActorRef) (*orders.OrderDTO, error) {
	if err, ok := f.errByID[orderID]; ok {
		return nil, err
	}
	if status != enums.OrderStatusCancelled {
		return nil, errors.New("unexpected status")
	}
	f.cancelled = append(f.cancelled, orderID)
	return &orders.OrderDTO{ID: orderID}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func TestStaleOrderJobCancelsOldPendingOrders(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()
	reader := &fakeStaleReader{orders: []models.Order{{ID: first}, {ID: second}}}
	canceller := &fakeCanceller{}

	jobIface, err := NewStaleOrderJob(StaleOrderJobParams{
		Logger: testLogger(),
		Reader: reader,
		Orders: canceller,
		MaxAge: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewStaleOrderJob: %v", err)
	}
	job := jobIface.(*staleOrderJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reader.lastCutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", reader.lastCutoff)
	}
	if len(canceller.cancelled) != 2 {
		t.Fatalf("expected 2 cancellations, got %d", len(canceller.cancelled))
	}
}

func TestStaleOrderJobToleratesLostRaces(t *testing.T) {
	racedID, failedID := uuid.New(), uuid.New()
	reader := &fakeStaleReader{orders: []models.Order{{ID: racedID}, {ID: failedID}}}
	canceller := &fakeCanceller{errByID: map[uuid.UUID]error{
		racedID:  pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed"),
		failedID: errors.New("db unavailable"),
	}}

	job, err := NewStaleOrderJob(StaleOrderJobParams{
		Logger: testLogger(),
		Reader: reader,
		Orders: canceller,
	})
	if err != nil {
		t.Fatalf("NewStaleOrderJob: %v", err)
	}

	// A lost race is silent; a real failure surfaces.
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected the hard failure to propagate")
	}
}

type fakeTokenPurgeRepo struct {
	deleted    int64
	err        error
	lastCutoff time.Time
}

func (f *fakeTokenPurgeRepo) DeleteDeadTokens(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestTokenPurgeJob(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeTokenPurgeRepo{deleted: 7}

	jobIface, err := NewTokenPurgeJob(TokenPurgeJobParams{Logger: testLogger(), Repository: repo})
	if err != nil {
		t.Fatalf("NewTokenPurgeJob: %v", err)
	}
	job := jobIface.(*tokenPurgeJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.lastCutoff.Equal(now) {
		t.Fatalf("expected cutoff %s, got %s", now, repo.lastCutoff)
	}

	repo.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeNotificationPruneRepo struct {
	deleted    int64
	err        error
	lastCutoff time.Time
}

func (f *fakeNotificationPruneRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationPruneJob(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationPruneRepo{deleted: 12}

	jobIface, err := NewNotificationPruneJob(NotificationPruneJobParams{
		Logger:     testLogger(),
		Repository: repo,
		MaxAge:     14 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationPruneJob: %v", err)
	}
	job := jobIface.(*notificationPruneJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-14 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
}
