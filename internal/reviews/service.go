package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Store is the persistence surface the review service depends on.
type Store interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]models.Review, error)
	Summarize(ctx context.Context, productID uuid.UUID) (*Summary, error)
	HasDeliveredOrderWithProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ProductVendorID(ctx context.Context, productID uuid.UUID) (uuid.UUID, error)
}

// ServiceParams groups dependencies for the review service.
type ServiceParams struct {
	Store Store
}

// Service exposes product reviews. Only buyers who received the product may
// review it, once each.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error)
	Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID, elevated bool) error
	DeleteForVendor(ctx context.Context, vendorID, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID, page pagination.Params) (*Page, error)
	Summarize(ctx context.Context, productID uuid.UUID) (*Summary, error)
}

// CreateInput carries a new review.
type CreateInput struct {
	ProductID uuid.UUID
	Rating    decimal.Decimal
	Comment   *string
}

// UpdateInput carries review edits; nil means unchanged.
type UpdateInput struct {
	Rating  *decimal.Decimal
	Comment *string
}

// ReviewDTO is the API projection of a review.
type ReviewDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	UserID    uuid.UUID       `json:"user_id"`
	UserName  string          `json:"user_name,omitempty"`
	Rating    decimal.Decimal `json:"rating"`
	Comment   *string         `json:"comment,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Page is one cursor page of reviews.
type Page struct {
	Items      []ReviewDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type service struct {
	store Store
}

// NewService builds the review service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review store is required")
	}
	return &service{store: params.Store}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error) {
	if userID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}

	eligible, err := s.store.HasDeliveredOrderWithProduct(ctx, userID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check review eligibility")
	}
	if !eligible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers with a delivered order can review this product")
	}

	review := &models.Review{
		UserID:    userID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
		Comment:   trimComment(input.Comment),
	}
	if err := s.store.Create(ctx, review); err != nil {
		if dbpkg.IsUniqueViolation(err, "reviews_user_product_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "you have already reviewed this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	dto := toDTO(review)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error) {
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
	}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		review.Comment = trimComment(input.Comment)
	}
	if err := s.store.Update(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	dto := toDTO(review)
	return &dto, nil
}

// Delete removes a review. The author may delete their own; elevated callers
// (admins moderating content) may delete any.
func (s *service) Delete(ctx context.Context, userID, reviewID uuid.UUID, elevated bool) error {
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return err
	}
	if !elevated && review.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
	}
	if err := s.store.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

// DeleteForVendor lets the vendor owning the reviewed product remove a review
// on their own listing.
func (s *service) DeleteForVendor(ctx context.Context, vendorID, reviewID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	review, err := s.load(ctx, reviewID)
	if err != nil {
		return err
	}
	owner, err := s.store.ProductVendorID(ctx, review.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "reviewed product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reviewed product")
	}
	if owner != vendorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review is not on one of your products")
	}
	if err := s.store.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, page pagination.Params) (*Page, error) {
	rows, err := s.store.ListByProduct(ctx, productID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	trimmed, hasMore := pagination.Trim(rows, page.Limit)
	result := &Page{Items: make([]ReviewDTO, 0, len(trimmed))}
	for i := range trimmed {
		result.Items = append(result.Items, toDTO(&trimmed[i]))
	}
	if hasMore && len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func (s *service) Summarize(ctx context.Context, productID uuid.UUID) (*Summary, error) {
	summary, err := s.store.Summarize(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}
	return summary, nil
}

func (s *service) load(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	review, err := s.store.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	return review, nil
}

func toDTO(review *models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
	if review.User != nil {
		dto.UserName = strings.TrimSpace(review.User.FirstName + " " + review.User.LastName)
	}
	return dto
}

func validateRating(rating decimal.Decimal) error {
	if rating.LessThan(decimal.NewFromInt(1)) || rating.GreaterThan(decimal.NewFromInt(5)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if !rating.Equal(rating.Round(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating allows at most one decimal place")
	}
	return nil
}

func trimComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
