package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

type deliveredKey struct {
	userID    uuid.UUID
	productID uuid.UUID
}

type fakeStore struct {
	reviews   map[uuid.UUID]*models.Review
	delivered map[deliveredKey]bool
	vendors   map[uuid.UUID]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reviews:   map[uuid.UUID]*models.Review{},
		delivered: map[deliveredKey]bool{},
		vendors:   map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeStore) Create(_ context.Context, review *models.Review) error {
	for _, existing := range f.reviews {
		if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
			return &mockUniqueViolation{}
		}
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	f.reviews[review.ID] = review
	return nil
}

type mockUniqueViolation struct{}

func (m *mockUniqueViolation) Error() string {
	return `duplicate key value violates unique constraint "reviews_user_product_key"`
}

func (f *fakeStore) Update(_ context.Context, review *models.Review) error {
	f.reviews[review.ID] = review
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.reviews, id)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	review, ok := f.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return review, nil
}

func (f *fakeStore) ListByProduct(_ context.Context, productID uuid.UUID, _ pagination.Params) ([]models.Review, error) {
	var out []models.Review
	for _, review := range f.reviews {
		if review.ProductID == productID {
			out = append(out, *review)
		}
	}
	return out, nil
}

func (f *fakeStore) Summarize(_ context.Context, productID uuid.UUID) (*Summary, error) {
	var sum float64
	var count int64
	for _, review := range f.reviews {
		if review.ProductID == productID {
			value, _ := review.Rating.Float64()
			sum += value
			count++
		}
	}
	summary := &Summary{Count: count}
	if count > 0 {
		summary.Average = sum / float64(count)
	}
	return summary, nil
}

func (f *fakeStore) HasDeliveredOrderWithProduct(_ context.Context, userID, productID uuid.UUID) (bool, error) {
	return f.delivered[deliveredKey{userID, productID}], nil
}

func (f *fakeStore) ProductVendorID(_ context.Context, productID uuid.UUID) (uuid.UUID, error) {
	vendorID, ok := f.vendors[productID]
	if !ok {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return vendorID, nil
}

func newReviewService(t *testing.T, store *fakeStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: store})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateRequiresDeliveredOrder(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		ProductID: uuid.New(),
		Rating:    decimal.NewFromInt(4),
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateAndDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)
	userID := uuid.New()
	productID := uuid.New()
	store.delivered[deliveredKey{userID, productID}] = true

	comment := "Very fresh, arrived on time."
	dto, err := svc.Create(context.Background(), userID, CreateInput{
		ProductID: productID,
		Rating:    decimal.RequireFromString("4.5"),
		Comment:   &comment,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Comment == nil || *dto.Comment != comment {
		t.Fatalf("expected comment kept, got %v", dto.Comment)
	}

	_, err = svc.Create(context.Background(), userID, CreateInput{
		ProductID: productID,
		Rating:    decimal.NewFromInt(2),
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRatingBounds(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)
	userID := uuid.New()
	productID := uuid.New()
	store.delivered[deliveredKey{userID, productID}] = true

	for _, value := range []string{"0.5", "5.5", "0", "-1", "4.55", "3.123"} {
		_, err := svc.Create(context.Background(), userID, CreateInput{
			ProductID: productID,
			Rating:    decimal.RequireFromString(value),
		})
		if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("rating %s: expected validation error, got %v", value, err)
		}
	}
}

func TestUpdateOwnReviewOnly(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)
	userID := uuid.New()
	productID := uuid.New()
	store.delivered[deliveredKey{userID, productID}] = true

	dto, err := svc.Create(context.Background(), userID, CreateInput{
		ProductID: productID,
		Rating:    decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newRating := decimal.NewFromInt(5)
	updated, err := svc.Update(context.Background(), userID, dto.ID, UpdateInput{Rating: &newRating})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Rating.Equal(newRating) {
		t.Fatalf("expected rating 5, got %s", updated.Rating)
	}

	_, err = svc.Update(context.Background(), uuid.New(), dto.ID, UpdateInput{Rating: &newRating})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAdminCanDeleteAnyReview(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)
	userID := uuid.New()
	productID := uuid.New()
	store.delivered[deliveredKey{userID, productID}] = true

	dto, err := svc.Create(context.Background(), userID, CreateInput{
		ProductID: productID,
		Rating:    decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), uuid.New(), dto.ID, false); err == nil {
		t.Fatal("expected forbidden for another user")
	}
	if err := svc.Delete(context.Background(), uuid.New(), dto.ID, true); err != nil {
		t.Fatalf("elevated delete: %v", err)
	}
}

func TestVendorCanDeleteReviewOnOwnProduct(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)
	userID := uuid.New()
	productID := uuid.New()
	vendorID := uuid.New()
	store.delivered[deliveredKey{userID, productID}] = true
	store.vendors[productID] = vendorID

	dto, err := svc.Create(context.Background(), userID, CreateInput{
		ProductID: productID,
		Rating:    decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.DeleteForVendor(context.Background(), uuid.New(), dto.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for another vendor, got %v", err)
	}
	if err := svc.DeleteForVendor(context.Background(), vendorID, dto.ID); err != nil {
		t.Fatalf("vendor delete: %v", err)
	}
	if _, ok := store.reviews[dto.ID]; ok {
		t.Fatal("expected review removed")
	}
}

func TestSummarize(t *testing.T) {
	store := newFakeStore()
	svc := newReviewService(t, store)
	productID := uuid.New()

	for _, rating := range []string{"4", "5", "3"} {
		userID := uuid.New()
		store.delivered[deliveredKey{userID, productID}] = true
		if _, err := svc.Create(context.Background(), userID, CreateInput{
			ProductID: productID,
			Rating:    decimal.RequireFromString(rating),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	summary, err := svc.Summarize(context.Background(), productID)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Count != 3 {
		t.Fatalf("expected 3 reviews, got %d", summary.Count)
	}
	if summary.Average != 4 {
		t.Fatalf("expected average 4, got %f", summary.Average)
	}
}
