package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

type fakeStore struct {
	events    []models.OutboxEvent
	backlog   int64
	published []uuid.UUID
	failed    []uuid.UUID
	markErr   error
}

func (f *fakeStore) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) CountUnpublished() (int64, error) {
	return f.backlog, nil
}

func (f *fakeStore) MarkPublished(id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeMetrics struct {
	published []string
	failed    []string
	backlog   int
}

func (f *fakeMetrics) IncPublished(eventType string) { f.published = append(f.published, eventType) }
func (f *fakeMetrics) IncFailed(eventType string)    { f.failed = append(f.failed, eventType) }
func (f *fakeMetrics) SetBacklog(n int)              { f.backlog = n }

func newTestService(t *testing.T, store outboxStore, pub publisher, m publishMetrics) *Service {
	t.Helper()
	cfg := &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 100,
			MaxAttempts:    5,
		},
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		Store:     store,
		Publisher: pub,
		Metrics:   m,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func orderEvent(payload string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"data":"` + payload + `"}`),
	}
}

func TestProcessBatchPublishesAndMarksRows(t *testing.T) {
	store := &fakeStore{
		events:  []models.OutboxEvent{orderEvent("one"), orderEvent("two")},
		backlog: 2,
	}
	pub := &fakePublisher{}
	m := &fakeMetrics{}
	service := newTestService(t, store, pub, m)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(store.published); got != 2 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if got := len(pub.messages); got != 2 {
		t.Fatalf("unexpected number of publish calls: %d", got)
	}
	if got := pub.messages[0].Attributes["event_type"]; got != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute: %q", got)
	}
	if got := pub.messages[0].Attributes["aggregate_id"]; got != store.events[0].AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute: %q", got)
	}
	if m.backlog != 2 {
		t.Fatalf("unexpected backlog gauge: %d", m.backlog)
	}
	if got := len(m.published); got != 2 {
		t.Fatalf("unexpected published metric count: %d", got)
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	store := &fakeStore{
		events: []models.OutboxEvent{orderEvent("one"), orderEvent("two")},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	m := &fakeMetrics{}
	service := newTestService(t, store, pub, m)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(store.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if store.failed[0] != store.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if got := len(store.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if store.published[0] != store.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
	if got := len(m.failed); got != 1 {
		t.Fatalf("unexpected failed metric count: %d", got)
	}
}

func TestProcessBatchEmptyReportsIdle(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(t, store, &fakePublisher{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
}

func TestProcessBatchStopsWhenMarkingFails(t *testing.T) {
	store := &fakeStore{
		events:  []models.OutboxEvent{orderEvent("one")},
		markErr: errors.New("db down"),
	}
	service := newTestService(t, store, &fakePublisher{}, nil)

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected marking error to surface")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(t, store, &fakePublisher{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
