package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Repository encapsulates product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// FindByID loads a product with its variants and linked deal.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Deal").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a product row with FOR UPDATE inside a transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariantForUpdate loads a variant row with FOR UPDATE inside a transaction.
func (r *Repository) FindVariantForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&variant, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

func (r *Repository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Save(variant).Error
}

func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductVariant{}, "id = ?", id).Error
}

func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListVariants returns all variants of a product.
func (r *Repository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListFilter narrows the public product listing.
type ListFilter struct {
	VendorID      *uuid.UUID
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	DealID        *uuid.UUID
	BannerID      *uuid.UUID
	Search        string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	FeaturedOnly  bool
	InStockOnly   bool
}

// List returns a page of products ordered newest first, plus the buffered
// rows needed for cursor detection.
func (r *Repository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Product, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Variants").
		Preload("Deal")

	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.SubcategoryID != nil {
		query = query.Where("subcategory_id = ?", *filter.SubcategoryID)
	}
	if filter.CategoryID != nil {
		query = query.Where("subcategory_id IN (SELECT id FROM subcategories WHERE category_id = ?)", *filter.CategoryID)
	}
	if filter.DealID != nil {
		query = query.Where("deal_id = ?", *filter.DealID)
	}
	if filter.BannerID != nil {
		query = query.Where("banner_id = ?", *filter.BannerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR brand ILIKE ?", pattern, pattern, pattern)
	}
	if filter.MinPrice != nil {
		query = query.Where(
			"(has_variants AND EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND v.base_price >= ?)) OR (NOT has_variants AND base_price >= ?)",
			*filter.MinPrice, *filter.MinPrice,
		)
	}
	if filter.MaxPrice != nil {
		query = query.Where(
			"(has_variants AND EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND v.base_price <= ?)) OR (NOT has_variants AND base_price <= ?)",
			*filter.MaxPrice, *filter.MaxPrice,
		)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured")
	}
	if filter.InStockOnly {
		query = query.Where("status <> ?", "OUT_OF_STOCK")
	}

	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit)).
		Find(&rows).Error
	return rows, err
}
