package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Store is the persistence surface the wishlist service depends on.
type Store interface {
	Add(ctx context.Context, item *models.WishlistItem) error
	Remove(ctx context.Context, userID, productID uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.WishlistItem, error)
}

// Catalog resolves products for validation and listing.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Store   Store
	Catalog Catalog
}

// Service exposes the per-user wishlist.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, page pagination.Params) (*Page, error)
}

// Entry is one wishlist row joined with its product projection. Product is
// nil when the product has since been removed from the catalog.
type Entry struct {
	ProductID uuid.UUID            `json:"product_id"`
	Product   *products.ProductDTO `json:"product,omitempty"`
	AddedAt   string               `json:"added_at"`
}

// Page is one cursor page of wishlist entries.
type Page struct {
	Items      []Entry `json:"items"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type service struct {
	store   Store
	catalog Catalog
}

// NewService builds the wishlist service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	return &service{store: params.Store, catalog: params.Catalog}, nil
}

// Add puts a product on the wishlist. Adding it twice is a silent no-op.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return err
	}
	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.store.Add(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	affected, err := s.store.Remove(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not on the wishlist")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, page pagination.Params) (*Page, error) {
	rows, err := s.store.List(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	trimmed, hasMore := pagination.Trim(rows, page.Limit)
	result := &Page{Items: make([]Entry, 0, len(trimmed))}
	for _, row := range trimmed {
		entry := Entry{
			ProductID: row.ProductID,
			AddedAt:   row.CreatedAt.UTC().Format(time.RFC3339),
		}
		product, err := s.catalog.Get(ctx, row.ProductID)
		if err == nil {
			entry.Product = product
		} else if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			return nil, err
		}
		result.Items = append(result.Items, entry)
	}

	if hasMore && len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}
