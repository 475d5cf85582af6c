package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
	"github.com/ashimneupane/bazarly-backend/pkg/types"
)

// Store is the persistence surface the product service depends on.
type Store interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Product, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	UpdateVariant(ctx context.Context, variant *models.ProductVariant) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error)
}

// SubcategoryFinder resolves subcategory references during product writes.
type SubcategoryFinder interface {
	FindSubcategoryByID(ctx context.Context, id uuid.UUID) (*models.Subcategory, error)
}

// ServiceParams groups dependencies for the product service.
type ServiceParams struct {
	Store         Store
	Subcategories SubcategoryFinder
	Now           func() time.Time
}

// Service exposes catalog management and browsing.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) (*ProductPage, error)
	Create(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, vendorID, productID uuid.UUID) error
	AddVariant(ctx context.Context, vendorID, productID uuid.UUID, input VariantInput) (*ProductDTO, error)
	UpdateVariant(ctx context.Context, vendorID, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error)
	DeleteVariant(ctx context.Context, vendorID, productID, variantID uuid.UUID) error
	SetFeatured(ctx context.Context, productID uuid.UUID, featured bool) error
}

// CreateProductInput carries the fields accepted on product creation.
// Simple products require BasePrice and Stock; variant products must leave
// both unset and supply at least one variant instead.
type CreateProductInput struct {
	SubcategoryID uuid.UUID
	Name          string
	Description   string
	Brand         *string
	HasVariants   bool
	BasePrice     *decimal.Decimal
	Discount      *decimal.Decimal
	DiscountType  *enums.DiscountType
	Stock         *int
	LowStockAt    *int
	Images        []string
	Variants      []VariantInput
}

// UpdateProductInput carries mutable product fields; nil means unchanged.
type UpdateProductInput struct {
	SubcategoryID *uuid.UUID
	Name          *string
	Description   *string
	Brand         *string
	BasePrice     *decimal.Decimal
	Discount      *decimal.Decimal
	DiscountType  *enums.DiscountType
	ClearDiscount bool
	Stock         *int
	LowStockAt    *int
	Images        []string
}

// VariantInput carries a new variant's fields.
type VariantInput struct {
	SKU          string
	Attributes   types.AttributeMap
	BasePrice    decimal.Decimal
	Discount     *decimal.Decimal
	DiscountType *enums.DiscountType
	Stock        int
	LowStockAt   *int
	Images       []string
}

// UpdateVariantInput carries mutable variant fields; nil means unchanged.
type UpdateVariantInput struct {
	Attributes   types.AttributeMap
	BasePrice    *decimal.Decimal
	Discount     *decimal.Decimal
	DiscountType *enums.DiscountType
	Stock        *int
	LowStockAt   *int
	Images       []string
}

type service struct {
	store         Store
	subcategories SubcategoryFinder
	now           func() time.Time
}

// NewService builds the product service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product store is required")
	}
	if params.Subcategories == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subcategory finder is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:         params.Store,
		subcategories: params.Subcategories,
		now:           now,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(product, s.now())
	return &dto, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) (*ProductPage, error) {
	rows, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	trimmed, hasMore := pagination.Trim(rows, page.Limit)
	now := s.now()
	items := make([]ProductDTO, 0, len(trimmed))
	for i := range trimmed {
		items = append(items, toDTO(&trimmed[i], now))
	}

	result := &ProductPage{Items: items}
	if hasMore && len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) Create(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product description is required")
	}
	if err := s.ensureSubcategory(ctx, input.SubcategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		VendorID:      vendorID,
		SubcategoryID: input.SubcategoryID,
		Name:          name,
		Description:   input.Description,
		Brand:         input.Brand,
		HasVariants:   input.HasVariants,
		Images:        pq.StringArray(input.Images),
	}

	if input.HasVariants {
		if input.BasePrice != nil || input.Stock != nil || input.Discount != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant products carry price and stock on their variants")
		}
		if len(input.Variants) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant products need at least one variant")
		}
		if input.LowStockAt != nil {
			product.LowStockThreshold = *input.LowStockAt
		}
		seenSKUs := make(map[string]struct{}, len(input.Variants))
		seenAttrs := make(map[string]struct{}, len(input.Variants))
		total := 0
		for i := range input.Variants {
			variant, err := buildVariant(input.Variants[i], product.LowStockThreshold)
			if err != nil {
				return nil, err
			}
			if _, dup := seenSKUs[variant.SKU]; dup {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists for this product")
			}
			seenSKUs[variant.SKU] = struct{}{}
			canonical := variant.Attributes.Canonical()
			if _, dup := seenAttrs[canonical]; dup {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a variant with these attributes already exists")
			}
			seenAttrs[canonical] = struct{}{}
			total += variant.Stock
			product.Variants = append(product.Variants, *variant)
		}
		product.Status = enums.StatusForStock(total, product.LowStockThreshold)
	} else {
		if len(input.Variants) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "simple products cannot carry variants")
		}
		if input.BasePrice == nil || input.Stock == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price and stock are required for simple products")
		}
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		if err := validateDiscount(input.Discount, input.DiscountType, *input.BasePrice); err != nil {
			return nil, err
		}
		product.BasePrice = input.BasePrice
		product.Discount = input.Discount
		product.DiscountType = input.DiscountType
		product.Stock = input.Stock
		if input.LowStockAt != nil {
			product.LowStockThreshold = *input.LowStockAt
		}
		product.Status = enums.StatusForStock(*input.Stock, product.LowStockThreshold)
	}

	if err := s.store.Create(ctx, product); err != nil {
		if dbpkg.IsUniqueViolation(err, "product_variants_product_sku_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := toDTO(product, s.now())
	return &dto, nil
}

func (s *service) Update(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	if input.SubcategoryID != nil {
		if err := s.ensureSubcategory(ctx, *input.SubcategoryID); err != nil {
			return nil, err
		}
		product.SubcategoryID = *input.SubcategoryID
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Images != nil {
		product.Images = pq.StringArray(input.Images)
	}

	if product.HasVariants {
		if input.BasePrice != nil || input.Stock != nil || input.Discount != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant products carry price and stock on their variants")
		}
	} else {
		if input.BasePrice != nil {
			if input.BasePrice.IsNegative() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
			}
			product.BasePrice = input.BasePrice
		}
		if input.ClearDiscount {
			product.Discount = nil
			product.DiscountType = nil
		} else if input.Discount != nil {
			discountType := input.DiscountType
			if discountType == nil {
				discountType = product.DiscountType
			}
			base := decimal.Zero
			if product.BasePrice != nil {
				base = *product.BasePrice
			}
			if err := validateDiscount(input.Discount, discountType, base); err != nil {
				return nil, err
			}
			product.Discount = input.Discount
			product.DiscountType = discountType
		}
		if input.Stock != nil {
			if *input.Stock < 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
			}
			product.Stock = input.Stock
		}
		if input.LowStockAt != nil {
			product.LowStockThreshold = *input.LowStockAt
		}
		if product.Stock != nil {
			product.Status = enums.StatusForStock(*product.Stock, product.LowStockThreshold)
		}
	}

	if err := s.store.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := toDTO(product, s.now())
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, vendorID, productID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, vendorID, productID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) AddVariant(ctx context.Context, vendorID, productID uuid.UUID, input VariantInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasVariants {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product does not use variants")
	}
	variant, err := buildVariant(input, product.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueAttributes(ctx, productID, uuid.Nil, variant.Attributes); err != nil {
		return nil, err
	}
	variant.ProductID = productID

	if err := s.store.CreateVariant(ctx, variant); err != nil {
		if dbpkg.IsUniqueViolation(err, "product_variants_product_sku_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	return s.Get(ctx, productID)
}

func (s *service) UpdateVariant(ctx context.Context, vendorID, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error) {
	if _, err := s.loadOwned(ctx, vendorID, productID); err != nil {
		return nil, err
	}
	variant, err := s.loadVariant(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}

	if input.Attributes != nil {
		if len(input.Attributes) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant attributes cannot be empty")
		}
		if err := s.ensureUniqueAttributes(ctx, productID, variantID, input.Attributes); err != nil {
			return nil, err
		}
		variant.Attributes = input.Attributes
	}
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		variant.BasePrice = *input.BasePrice
	}
	if input.Discount != nil {
		discountType := variant.DiscountType
		if input.DiscountType != nil {
			discountType = *input.DiscountType
		}
		if err := validateDiscount(input.Discount, &discountType, variant.BasePrice); err != nil {
			return nil, err
		}
		variant.Discount = *input.Discount
		variant.DiscountType = discountType
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		variant.Stock = *input.Stock
	}
	if input.LowStockAt != nil {
		variant.LowStockThreshold = *input.LowStockAt
	}
	if input.Images != nil {
		variant.Images = pq.StringArray(input.Images)
	}
	variant.Status = enums.StatusForStock(variant.Stock, variant.LowStockThreshold)

	if err := s.store.UpdateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	return s.Get(ctx, productID)
}

func (s *service) DeleteVariant(ctx context.Context, vendorID, productID, variantID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, vendorID, productID); err != nil {
		return err
	}
	if _, err := s.loadVariant(ctx, productID, variantID); err != nil {
		return err
	}
	variants, err := s.store.ListVariants(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list variants")
	}
	if len(variants) <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete the last variant of a product")
	}
	if err := s.store.DeleteVariant(ctx, variantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
	}
	return nil
}

func (s *service) SetFeatured(ctx context.Context, productID uuid.UUID, featured bool) error {
	product, err := s.load(ctx, productID)
	if err != nil {
		return err
	}
	product.IsFeatured = featured
	if err := s.store.Update(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) loadOwned(ctx context.Context, vendorID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if vendorID != uuid.Nil && product.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}
	return product, nil
}

func (s *service) loadVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.store.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found on this product")
	}
	return variant, nil
}

// ensureUniqueAttributes rejects a second variant with the same canonical
// attribute set. excludeID skips the variant being updated.
func (s *service) ensureUniqueAttributes(ctx context.Context, productID, excludeID uuid.UUID, attrs types.AttributeMap) error {
	variants, err := s.store.ListVariants(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list variants")
	}
	canonical := attrs.Canonical()
	for _, v := range variants {
		if v.ID == excludeID {
			continue
		}
		if v.Attributes.Canonical() == canonical {
			return pkgerrors.New(pkgerrors.CodeConflict, "a variant with these attributes already exists")
		}
	}
	return nil
}

func (s *service) ensureSubcategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subcategory id is required")
	}
	if _, err := s.subcategories.FindSubcategoryByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "subcategory not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subcategory")
	}
	return nil
}

// buildVariant validates the input and assembles a variant row. ProductID is
// left for the caller to fill.
func buildVariant(input VariantInput, fallbackThreshold int) (*models.ProductVariant, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
	}
	if len(input.Attributes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant attributes are required")
	}
	if input.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if err := validateDiscount(input.Discount, input.DiscountType, input.BasePrice); err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{
		SKU:        sku,
		Attributes: input.Attributes,
		BasePrice:  input.BasePrice,
		Stock:      input.Stock,
		Images:     pq.StringArray(input.Images),
	}
	if input.Discount != nil {
		variant.Discount = *input.Discount
	}
	if input.DiscountType != nil {
		variant.DiscountType = *input.DiscountType
	}
	if input.LowStockAt != nil {
		variant.LowStockThreshold = *input.LowStockAt
	} else {
		variant.LowStockThreshold = fallbackThreshold
	}
	variant.Status = enums.StatusForStock(variant.Stock, variant.LowStockThreshold)
	return variant, nil
}

func validateDiscount(discount *decimal.Decimal, discountType *enums.DiscountType, base decimal.Decimal) error {
	if discount == nil {
		return nil
	}
	if discountType == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount type is required when a discount is set")
	}
	if !discountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if discount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	if *discountType == enums.DiscountTypePercentage && discount.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if *discountType == enums.DiscountTypeFlat && discount.GreaterThan(base) {
		return pkgerrors.New(pkgerrors.CodeValidation, "flat discount cannot exceed the base price")
	}
	return nil
}
