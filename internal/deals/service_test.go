package deals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
)

type fakeRunner struct{}

func (fakeRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeStore struct {
	deals map[uuid.UUID]*models.Deal
	// productID -> dealID link
	links map[uuid.UUID]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deals: map[uuid.UUID]*models.Deal{},
		links: map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeStore) Create(_ context.Context, deal *models.Deal) error {
	deal.ID = uuid.New()
	deal.CreatedAt = time.Now()
	f.deals[deal.ID] = deal
	return nil
}

func (f *fakeStore) Update(_ context.Context, deal *models.Deal) error {
	f.deals[deal.ID] = deal
	return nil
}

func (f *fakeStore) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	delete(f.deals, id)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*models.Deal, error) {
	deal, ok := f.deals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return deal, nil
}

func (f *fakeStore) List(_ context.Context, status *enums.DealStatus) ([]models.Deal, error) {
	var out []models.Deal
	for _, deal := range f.deals {
		if status != nil && deal.Status != *status {
			continue
		}
		out = append(out, *deal)
	}
	return out, nil
}

func (f *fakeStore) AttachProducts(_ context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	for _, id := range productIDs {
		f.links[id] = dealID
	}
	return int64(len(productIDs)), nil
}

func (f *fakeStore) DetachProducts(_ context.Context, dealID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	var affected int64
	for _, id := range productIDs {
		if f.links[id] == dealID {
			delete(f.links, id)
			affected++
		}
	}
	return affected, nil
}

func (f *fakeStore) DetachAll(_ context.Context, _ *gorm.DB, dealID uuid.UUID) (int64, error) {
	var affected int64
	for id, linked := range f.links {
		if linked == dealID {
			delete(f.links, id)
			affected++
		}
	}
	return affected, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newDealService(t *testing.T, store *fakeStore, emitter *fakeEmitter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Runner: fakeRunner{}, Store: store, Events: emitter})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateDealValidation(t *testing.T) {
	svc := newDealService(t, newFakeStore(), &fakeEmitter{})

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"empty title", CreateInput{Title: "  ", DiscountPercentage: decimal.NewFromInt(10)}},
		{"zero percentage", CreateInput{Title: "Dashain Sale", DiscountPercentage: decimal.Zero}},
		{"percentage above 100", CreateInput{Title: "Dashain Sale", DiscountPercentage: decimal.NewFromInt(101)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateDealWindowMustBeOrdered(t *testing.T) {
	svc := newDealService(t, newFakeStore(), &fakeEmitter{})
	start := time.Now()
	end := start.Add(-time.Hour)

	_, err := svc.Create(context.Background(), CreateInput{
		Title:              "Dashain Sale",
		DiscountPercentage: decimal.NewFromInt(15),
		StartsAt:           &start,
		EndsAt:             &end,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteDetachesProductsAndEmits(t *testing.T) {
	store := newFakeStore()
	emitter := &fakeEmitter{}
	svc := newDealService(t, store, emitter)

	deal, err := svc.Create(context.Background(), CreateInput{
		Title:              "Dashain Sale",
		DiscountPercentage: decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	productIDs := []uuid.UUID{uuid.New(), uuid.New()}
	if _, err := svc.AttachProducts(context.Background(), deal.ID, productIDs); err != nil {
		t.Fatalf("AttachProducts: %v", err)
	}

	if err := svc.Delete(context.Background(), deal.ID, nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.links) != 0 {
		t.Fatalf("expected all product links cleared, got %d", len(store.links))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventDealDeleted {
		t.Fatalf("expected deal_deleted event, got %+v", emitter.events)
	}
}

func TestSetStatus(t *testing.T) {
	store := newFakeStore()
	svc := newDealService(t, store, &fakeEmitter{})

	deal, err := svc.Create(context.Background(), CreateInput{
		Title:              "Tihar Sale",
		DiscountPercentage: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if deal.Status != enums.DealStatusEnabled {
		t.Fatalf("expected ENABLED default, got %s", deal.Status)
	}

	updated, err := svc.SetStatus(context.Background(), deal.ID, enums.DealStatusDisabled)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != enums.DealStatusDisabled {
		t.Fatalf("expected DISABLED, got %s", updated.Status)
	}

	_, err = svc.SetStatus(context.Background(), deal.ID, enums.DealStatus("PAUSED"))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAttachRequiresExistingDeal(t *testing.T) {
	svc := newDealService(t, newFakeStore(), &fakeEmitter{})

	_, err := svc.AttachProducts(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
