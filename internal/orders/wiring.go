package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/internal/cart"
	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// repoStore adapts Repository to the Store interface, binding writes to the
// caller's transaction.
type repoStore struct {
	repo *Repository
}

// NewStore wraps the order repository for use by the service.
func NewStore(repo *Repository) Store {
	return repoStore{repo: repo}
}

func (a repoStore) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return a.repo.WithTx(tx).Create(ctx, order)
}

func (a repoStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return a.repo.FindByID(ctx, id)
}

func (a repoStore) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	return a.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
}

func (a repoStore) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.OrderStatus) error {
	return a.repo.WithTx(tx).UpdateStatus(ctx, id, status)
}

func (a repoStore) UpdatePayment(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.PaymentStatus, transactionID *string) error {
	return a.repo.WithTx(tx).UpdatePayment(ctx, id, status, transactionID)
}

func (a repoStore) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, error) {
	return a.repo.List(ctx, filter, page)
}

func (a repoStore) ListVendorItems(ctx context.Context, vendorID uuid.UUID, page pagination.Params) ([]VendorItemRow, error) {
	return a.repo.ListVendorItems(ctx, vendorID, page)
}

// productStock adapts the product repository to the Stock interface.
type productStock struct {
	repo *products.Repository
}

// NewStock wraps the product repository for stock reservation.
func NewStock(repo *products.Repository) Stock {
	return productStock{repo: repo}
}

func (a productStock) LockProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	return a.repo.FindByIDForUpdate(ctx, tx, id)
}

func (a productStock) LockVariant(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ProductVariant, error) {
	return a.repo.FindVariantForUpdate(ctx, tx, id)
}

func (a productStock) SetProductStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, stock int, status enums.ProductStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"stock": stock, "status": status}).Error
}

func (a productStock) SetVariantStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, stock int, status enums.ProductStatus) error {
	return tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", id).
		Updates(map[string]any{"stock": stock, "status": status}).Error
}

// cartAccess adapts the cart repository to the Carts interface.
type cartAccess struct {
	repo *cart.Repository
}

// NewCarts wraps the cart repository for checkout.
func NewCarts(repo *cart.Repository) Carts {
	return cartAccess{repo: repo}
}

func (a cartAccess) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return a.repo.FindOrCreateByUser(ctx, userID)
}

func (a cartAccess) Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	return a.repo.WithTx(tx).Clear(ctx, cartID)
}
