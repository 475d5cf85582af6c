package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/internal/pricing"
	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

type fakeItemStore struct {
	cart  *models.Cart
	items map[uuid.UUID]*models.CartItem
}

func newFakeItemStore(userID uuid.UUID) *fakeItemStore {
	return &fakeItemStore{
		cart:  &models.Cart{ID: uuid.New(), UserID: userID},
		items: map[uuid.UUID]*models.CartItem{},
	}
}

func (f *fakeItemStore) FindOrCreateByUser(_ context.Context, _ uuid.UUID) (*models.Cart, error) {
	cart := *f.cart
	cart.Items = nil
	for _, item := range f.items {
		cart.Items = append(cart.Items, *item)
	}
	return &cart, nil
}

func (f *fakeItemStore) FindItem(_ context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	item, ok := f.items[itemID]
	if !ok || item.CartID != cartID {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeItemStore) FindItemByRef(_ context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	for _, item := range f.items {
		if item.CartID != cartID || item.ProductID != productID {
			continue
		}
		if (item.VariantID == nil) != (variantID == nil) {
			continue
		}
		if item.VariantID != nil && *item.VariantID != *variantID {
			continue
		}
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeItemStore) CreateItem(_ context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeItemStore) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	if item, ok := f.items[itemID]; ok {
		item.Quantity = quantity
	}
	return nil
}

func (f *fakeItemStore) DeleteItem(_ context.Context, _, itemID uuid.UUID) error {
	delete(f.items, itemID)
	return nil
}

func (f *fakeItemStore) Clear(_ context.Context, _ uuid.UUID) error {
	f.items = map[uuid.UUID]*models.CartItem{}
	return nil
}

type fakeCatalog struct {
	byID map[uuid.UUID]*products.ProductDTO
}

func (f *fakeCatalog) Get(_ context.Context, id uuid.UUID) (*products.ProductDTO, error) {
	product, ok := f.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func simpleProduct(price string) *products.ProductDTO {
	effective := decimal.RequireFromString(price)
	return &products.ProductDTO{
		ID:   uuid.New(),
		Name: "Copper Bottle",
		Price: &products.PriceDTO{
			BasePrice:      effective,
			EffectivePrice: effective,
			AppliedSource:  pricing.SourceNone,
		},
	}
}

func variantProduct(price string) *products.ProductDTO {
	effective := decimal.RequireFromString(price)
	return &products.ProductDTO{
		ID:          uuid.New(),
		Name:        "Sneakers",
		HasVariants: true,
		Variants: []products.VariantDTO{
			{
				ID:  uuid.New(),
				SKU: "SNK-RED-42",
				Price: products.PriceDTO{
					BasePrice:      effective,
					EffectivePrice: effective,
					AppliedSource:  pricing.SourceNone,
				},
			},
		},
	}
}

func newCartService(t *testing.T, store ItemStore, catalog Catalog) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: store, Catalog: catalog})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAddItemAndTotal(t *testing.T) {
	userID := uuid.New()
	store := newFakeItemStore(userID)
	product := simpleProduct("450.00")
	svc := newCartService(t, store, &fakeCatalog{byID: map[uuid.UUID]*products.ProductDTO{product.ID: product}})

	dto, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(dto.Items))
	}
	if !dto.Total.Equal(decimal.RequireFromString("900.00")) {
		t.Fatalf("expected total 900.00, got %s", dto.Total)
	}
}

func TestAddSameItemBumpsQuantity(t *testing.T) {
	userID := uuid.New()
	store := newFakeItemStore(userID)
	product := simpleProduct("100")
	svc := newCartService(t, store, &fakeCatalog{byID: map[uuid.UUID]*products.ProductDTO{product.ID: product}})

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	dto, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected single merged line, got %d", len(dto.Items))
	}
	if dto.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", dto.Items[0].Quantity)
	}
}

func TestAddVariantProductRequiresVariant(t *testing.T) {
	userID := uuid.New()
	store := newFakeItemStore(userID)
	product := variantProduct("2500")
	svc := newCartService(t, store, &fakeCatalog{byID: map[uuid.UUID]*products.ProductDTO{product.ID: product}})

	_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	unknown := uuid.New()
	_, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, VariantID: &unknown, Quantity: 1})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}

	dto, err := svc.AddItem(context.Background(), userID, AddItemInput{
		ProductID: product.ID,
		VariantID: &product.Variants[0].ID,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if !dto.Total.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("expected total 2500, got %s", dto.Total)
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	userID := uuid.New()
	store := newFakeItemStore(userID)
	svc := newCartService(t, store, &fakeCatalog{byID: map[uuid.UUID]*products.ProductDTO{}})

	_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: uuid.New(), Quantity: 0})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemovedProductFlaggedUnavailable(t *testing.T) {
	userID := uuid.New()
	store := newFakeItemStore(userID)
	product := simpleProduct("100")
	catalog := &fakeCatalog{byID: map[uuid.UUID]*products.ProductDTO{product.ID: product}}
	svc := newCartService(t, store, catalog)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	delete(catalog.byID, product.ID)

	dto, err := svc.View(context.Background(), userID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(dto.Items) != 1 || !dto.Items[0].Unavailable {
		t.Fatalf("expected unavailable line, got %+v", dto.Items)
	}
	if !dto.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", dto.Total)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	userID := uuid.New()
	store := newFakeItemStore(userID)
	product := simpleProduct("50")
	svc := newCartService(t, store, &fakeCatalog{byID: map[uuid.UUID]*products.ProductDTO{product.ID: product}})

	dto, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	itemID := dto.Items[0].ID

	dto, err = svc.UpdateItem(context.Background(), userID, itemID, 4)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if !dto.Total.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("expected total 200, got %s", dto.Total)
	}

	dto, err = svc.RemoveItem(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(dto.Items))
	}

	_, err = svc.UpdateItem(context.Background(), userID, itemID, 1)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
