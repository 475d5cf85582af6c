package products

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
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
	"github.com/ashimneupane/bazarly-backend/pkg/types"
)

type fakeStore struct {
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant

	createErr        error
	createVariantErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[uuid.UUID]*models.Product{},
		variants: map[uuid.UUID]*models.ProductVariant{},
	}
}

func (f *fakeStore) Create(_ context.Context, product *models.Product) error {
	if f.createErr != nil {
		return f.createErr
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	for i := range product.Variants {
		if product.Variants[i].ID == uuid.Nil {
			product.Variants[i].ID = uuid.New()
		}
		product.Variants[i].ProductID = product.ID
		v := product.Variants[i]
		f.variants[v.ID] = &v
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) Update(_ context.Context, product *models.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.products, id)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	copied.Variants = nil
	for _, v := range f.variants {
		if v.ProductID == id {
			copied.Variants = append(copied.Variants, *v)
		}
	}
	return &copied, nil
}

func (f *fakeStore) List(_ context.Context, _ ListFilter, _ pagination.Params) ([]models.Product, error) {
	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) CreateVariant(_ context.Context, variant *models.ProductVariant) error {
	if f.createVariantErr != nil {
		return f.createVariantErr
	}
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	f.variants[variant.ID] = variant
	return nil
}

func (f *fakeStore) UpdateVariant(_ context.Context, variant *models.ProductVariant) error {
	f.variants[variant.ID] = variant
	return nil
}

func (f *fakeStore) DeleteVariant(_ context.Context, id uuid.UUID) error {
	delete(f.variants, id)
	return nil
}

func (f *fakeStore) FindVariantByID(_ context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := f.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return variant, nil
}

func (f *fakeStore) ListVariants(_ context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	out := make([]models.ProductVariant, 0)
	for _, v := range f.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	return out, nil
}

type fakeSubcategories struct {
	known map[uuid.UUID]bool
}

func (f *fakeSubcategories) FindSubcategoryByID(_ context.Context, id uuid.UUID) (*models.Subcategory, error) {
	if !f.known[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Subcategory{ID: id}, nil
}

func newTestService(t *testing.T, store *fakeStore, subcategoryID uuid.UUID) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:         store,
		Subcategories: &fakeSubcategories{known: map[uuid.UUID]bool{subcategoryID: true}},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func intPtr(v int) *int { return &v }

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code(), err)
	}
}

func TestCreateSimpleProduct(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	vendorID := uuid.New()

	dto, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		SubcategoryID: subID,
		Name:          "Himalayan Green Tea",
		Description:   "Loose leaf, 100g",
		BasePrice:     decPtr("450.00"),
		Stock:         intPtr(12),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.ProductStatusAvailable {
		t.Fatalf("expected AVAILABLE, got %s", dto.Status)
	}
	if dto.Price == nil || !dto.Price.EffectivePrice.Equal(decimal.RequireFromString("450.00")) {
		t.Fatalf("unexpected price: %+v", dto.Price)
	}
}

func TestCreateSimpleProductRequiresPriceAndStock(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)

	_, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Incomplete",
		Description:   "missing price",
		Stock:         intPtr(3),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateVariantProductRejectsBaseFields(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)

	_, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Sneakers",
		Description:   "sized footwear",
		HasVariants:   true,
		BasePrice:     decPtr("2500"),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestVariantProductRequiresVariants(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)

	_, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Sneakers",
		Description:   "sized footwear",
		HasVariants:   true,
	})
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(store.products) != 0 {
		t.Fatalf("expected no product persisted, got %d", len(store.products))
	}
}

func TestCreateVariantProductWithVariants(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)

	dto, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Sneakers",
		Description:   "sized footwear",
		HasVariants:   true,
		Variants: []VariantInput{
			{
				SKU:        "SNK-40",
				Attributes: types.AttributeMap{"size": "40"},
				BasePrice:  decimal.RequireFromString("2500"),
				Stock:      5,
			},
			{
				SKU:        "SNK-41",
				Attributes: types.AttributeMap{"size": "41"},
				BasePrice:  decimal.RequireFromString("2500"),
				Stock:      0,
			},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(dto.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(dto.Variants))
	}
	if dto.Status == enums.ProductStatusOutOfStock {
		t.Fatalf("expected stocked product, got %s", dto.Status)
	}
}

func TestCreateVariantProductRejectsDuplicates(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)

	base := VariantInput{
		SKU:        "SNK-40",
		Attributes: types.AttributeMap{"size": "40"},
		BasePrice:  decimal.RequireFromString("2500"),
		Stock:      5,
	}
	dupSKU := base
	dupSKU.Attributes = types.AttributeMap{"size": "41"}

	_, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Sneakers",
		Description:   "sized footwear",
		HasVariants:   true,
		Variants:      []VariantInput{base, dupSKU},
	})
	expectCode(t, err, pkgerrors.CodeConflict)

	dupAttrs := base
	dupAttrs.SKU = "SNK-40B"
	_, err = svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Sneakers",
		Description:   "sized footwear",
		HasVariants:   true,
		Variants:      []VariantInput{base, dupAttrs},
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateSimpleProductRejectsVariants(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)

	_, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		SubcategoryID: subID,
		Name:          "Thermos",
		Description:   "one litre steel flask",
		BasePrice:     decPtr("1200"),
		Stock:         intPtr(3),
		Variants: []VariantInput{{
			SKU:        "TH-1",
			Attributes: types.AttributeMap{"color": "silver"},
			BasePrice:  decimal.RequireFromString("1200"),
			Stock:      3,
		}},
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateRecomputesStockStatus(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	vendorID := uuid.New()

	dto, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		SubcategoryID: subID,
		Name:          "Copper Bottle",
		Description:   "1L",
		BasePrice:     decPtr("900"),
		Stock:         intPtr(20),
		LowStockAt:    intPtr(5),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), vendorID, dto.ID, UpdateProductInput{
		Stock: intPtr(3),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != enums.ProductStatusLowStock {
		t.Fatalf("expected LOW_STOCK, got %s", updated.Status)
	}

	updated, err = svc.Update(context.Background(), vendorID, dto.ID, UpdateProductInput{
		Stock: intPtr(0),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != enums.ProductStatusOutOfStock {
		t.Fatalf("expected OUT_OF_STOCK, got %s", updated.Status)
	}
}

func TestUpdateForeignProductForbidden(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	owner := uuid.New()

	dto, err := svc.Create(context.Background(), owner, CreateProductInput{
		SubcategoryID: subID,
		Name:          "Notebook",
		Description:   "A5 ruled",
		BasePrice:     decPtr("120"),
		Stock:         intPtr(50),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(context.Background(), uuid.New(), dto.ID, UpdateProductInput{
		Stock: intPtr(1),
	})
	expectCode(t, err, pkgerrors.CodeForbidden)

	// A nil vendor ID is an elevated caller and skips the ownership check.
	updated, err := svc.Update(context.Background(), uuid.Nil, dto.ID, UpdateProductInput{
		Stock: intPtr(1),
	})
	if err != nil {
		t.Fatalf("elevated Update: %v", err)
	}
	if updated.Stock == nil || *updated.Stock != 1 {
		t.Fatalf("expected stock 1, got %v", updated.Stock)
	}
}

func seedVariantProduct(t *testing.T, svc Service, vendorID, subID uuid.UUID) *ProductDTO {
	t.Helper()
	dto, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		SubcategoryID: subID,
		Name:          "Sneakers",
		Description:   "sized footwear",
		HasVariants:   true,
		Variants: []VariantInput{{
			SKU:        "SNK-BLK-40",
			Attributes: types.AttributeMap{"color": "black", "size": "40"},
			BasePrice:  decimal.RequireFromString("2200"),
			Stock:      4,
		}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return dto
}

func TestAddVariant(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	vendorID := uuid.New()

	parent := seedVariantProduct(t, svc, vendorID, subID)

	dto, err := svc.AddVariant(context.Background(), vendorID, parent.ID, VariantInput{
		SKU:        "SNK-RED-42",
		Attributes: types.AttributeMap{"color": "red", "size": "42"},
		BasePrice:  decimal.RequireFromString("2500"),
		Stock:      8,
	})
	if err != nil {
		t.Fatalf("AddVariant: %v", err)
	}
	if len(dto.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(dto.Variants))
	}
	for _, v := range dto.Variants {
		if v.SKU == "SNK-RED-42" && v.Status != enums.ProductStatusAvailable {
			t.Fatalf("expected AVAILABLE variant, got %s", v.Status)
		}
	}
}

func TestAddVariantDuplicateAttributes(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	vendorID := uuid.New()

	parent := seedVariantProduct(t, svc, vendorID, subID)

	_, err := svc.AddVariant(context.Background(), vendorID, parent.ID, VariantInput{
		SKU:        "SNK-BLK-40B",
		Attributes: types.AttributeMap{"size": "40", "color": "black"},
		BasePrice:  decimal.RequireFromString("2600"),
		Stock:      4,
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestAddVariantOnSimpleProduct(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	vendorID := uuid.New()

	parent, err := svc.Create(context.Background(), vendorID, CreateProductInput{
		SubcategoryID: subID,
		Name:          "Copper Bottle",
		Description:   "1L",
		BasePrice:     decPtr("900"),
		Stock:         intPtr(4),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.AddVariant(context.Background(), vendorID, parent.ID, VariantInput{
		SKU:        "BTL-1",
		Attributes: types.AttributeMap{"size": "1L"},
		BasePrice:  decimal.RequireFromString("900"),
		Stock:      4,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDeleteLastVariantRejected(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	vendorID := uuid.New()

	parent := seedVariantProduct(t, svc, vendorID, subID)

	err := svc.DeleteVariant(context.Background(), vendorID, parent.ID, parent.Variants[0].ID)
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDiscountValidation(t *testing.T) {
	store := newFakeStore()
	subID := uuid.New()
	svc := newTestService(t, store, subID)
	percentage := enums.DiscountTypePercentage
	flat := enums.DiscountTypeFlat

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{
			name: "discount without type",
			input: CreateProductInput{
				SubcategoryID: subID,
				Name:          "A",
				Description:   "a",
				BasePrice:     decPtr("100"),
				Stock:         intPtr(1),
				Discount:      decPtr("10"),
			},
		},
		{
			name: "percentage above 100",
			input: CreateProductInput{
				SubcategoryID: subID,
				Name:          "B",
				Description:   "b",
				BasePrice:     decPtr("100"),
				Stock:         intPtr(1),
				Discount:      decPtr("120"),
				DiscountType:  &percentage,
			},
		},
		{
			name: "flat above base price",
			input: CreateProductInput{
				SubcategoryID: subID,
				Name:          "C",
				Description:   "c",
				BasePrice:     decPtr("100"),
				Stock:         intPtr(1),
				Discount:      decPtr("150"),
				DiscountType:  &flat,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), tc.input)
			expectCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestGetUnknownProduct(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, uuid.New())

	_, err := svc.Get(context.Background(), uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}
