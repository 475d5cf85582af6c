package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

// Catalog is the slice of the product service the cart needs for
// validation and pricing.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error)
}

// ItemStore is the persistence surface the cart service depends on.
type ItemStore interface {
	FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByRef(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Store   ItemStore
	Catalog Catalog
}

// Service exposes the per-user shopping cart.
type Service interface {
	View(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// AddItemInput references a product (optionally a variant) and a quantity.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// ItemDTO is a priced cart line.
type ItemDTO struct {
	ID          uuid.UUID          `json:"id"`
	ProductID   uuid.UUID          `json:"product_id"`
	VariantID   *uuid.UUID         `json:"variant_id,omitempty"`
	Name        string             `json:"name"`
	Price       *products.PriceDTO `json:"price,omitempty"`
	Quantity    int                `json:"quantity"`
	LineTotal   decimal.Decimal    `json:"line_total"`
	Unavailable bool               `json:"unavailable,omitempty"`
}

// CartDTO is the priced cart view. Totals are derived at read time.
type CartDTO struct {
	ID    uuid.UUID       `json:"id"`
	Items []ItemDTO       `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type service struct {
	store   ItemStore
	catalog Catalog
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	return &service{store: params.Store, catalog: params.Catalog}, nil
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.HasVariants {
		if input.VariantID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is required for this product")
		}
		if findVariant(product, *input.VariantID) == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found on this product")
		}
	} else if input.VariantID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no variants")
	}

	// adding the same reference again bumps the quantity
	existing, err := s.store.FindItemByRef(ctx, cart.ID, input.ProductID, input.VariantID)
	if err == nil {
		if err := s.store.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return s.View(ctx, userID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cart item")
	}

	item := &models.CartItem{
		CartID:    cart.ID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Quantity:  input.Quantity,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return s.View(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cart item")
	}
	if err := s.store.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.View(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup cart item")
	}
	if err := s.store.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.View(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) loadCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.store.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// project prices every line against the current catalog. Lines whose product
// disappeared are kept but flagged unavailable and excluded from the total.
func (s *service) project(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	dto := &CartDTO{ID: cart.ID, Items: make([]ItemDTO, 0, len(cart.Items)), Total: decimal.Zero}

	for _, item := range cart.Items {
		line := ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			LineTotal: decimal.Zero,
		}

		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				line.Unavailable = true
				dto.Items = append(dto.Items, line)
				continue
			}
			return nil, err
		}
		line.Name = product.Name

		var price *products.PriceDTO
		if item.VariantID != nil {
			variant := findVariant(product, *item.VariantID)
			if variant == nil {
				line.Unavailable = true
				dto.Items = append(dto.Items, line)
				continue
			}
			price = &variant.Price
		} else {
			price = product.Price
		}
		if price == nil {
			line.Unavailable = true
			dto.Items = append(dto.Items, line)
			continue
		}

		line.Price = price
		line.LineTotal = price.EffectivePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		dto.Total = dto.Total.Add(line.LineTotal)
		dto.Items = append(dto.Items, line)
	}
	return dto, nil
}

func findVariant(product *products.ProductDTO, variantID uuid.UUID) *products.VariantDTO {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}
