package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/internal/pricing"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/types"
)

// PriceDTO is the computed price breakdown attached to products and variants.
type PriceDTO struct {
	BasePrice      decimal.Decimal `json:"base_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	AppliedSource  pricing.Source  `json:"applied_source"`
}

// VariantDTO is the API projection of a product variant.
type VariantDTO struct {
	ID         uuid.UUID           `json:"id"`
	SKU        string              `json:"sku"`
	Attributes types.AttributeMap  `json:"attributes"`
	Price      PriceDTO            `json:"price"`
	Stock      int                 `json:"stock"`
	Status     enums.ProductStatus `json:"status"`
	Images     []string            `json:"images"`
}

// ProductDTO is the API projection of a product, including pricing.
type ProductDTO struct {
	ID            uuid.UUID           `json:"id"`
	VendorID      uuid.UUID           `json:"vendor_id"`
	SubcategoryID uuid.UUID           `json:"subcategory_id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Brand         *string             `json:"brand,omitempty"`
	HasVariants   bool                `json:"has_variants"`
	Price         *PriceDTO           `json:"price,omitempty"`
	Stock         *int                `json:"stock,omitempty"`
	Status        enums.ProductStatus `json:"status"`
	Images        []string            `json:"images"`
	DealID        *uuid.UUID          `json:"deal_id,omitempty"`
	IsFeatured    bool                `json:"is_featured"`
	Variants      []VariantDTO        `json:"variants,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ProductPage is a cursor-paginated product listing.
type ProductPage struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// toDTO maps a product row (with preloaded variants and deal) into its projection.
func toDTO(p *models.Product, now time.Time) ProductDTO {
	dealPct := activeDealPercentage(p.Deal, now)

	dto := ProductDTO{
		ID:            p.ID,
		VendorID:      p.VendorID,
		SubcategoryID: p.SubcategoryID,
		Name:          p.Name,
		Description:   p.Description,
		Brand:         p.Brand,
		HasVariants:   p.HasVariants,
		Status:        p.Status,
		Images:        p.Images,
		DealID:        p.DealID,
		IsFeatured:    p.IsFeatured,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}

	if !p.HasVariants && p.BasePrice != nil {
		result := pricing.Effective(pricing.Input{
			BasePrice:      *p.BasePrice,
			Discount:       p.Discount,
			DiscountType:   p.DiscountType,
			DealPercentage: dealPct,
		})
		dto.Price = &PriceDTO{
			BasePrice:      result.BasePrice,
			DiscountAmount: result.DiscountAmount,
			EffectivePrice: result.EffectivePrice,
			AppliedSource:  result.Applied,
		}
		dto.Stock = p.Stock
	}

	for _, v := range p.Variants {
		v := v
		result := pricing.Effective(pricing.Input{
			BasePrice:      v.BasePrice,
			Discount:       &v.Discount,
			DiscountType:   &v.DiscountType,
			DealPercentage: dealPct,
		})
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:         v.ID,
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Price: PriceDTO{
				BasePrice:      result.BasePrice,
				DiscountAmount: result.DiscountAmount,
				EffectivePrice: result.EffectivePrice,
				AppliedSource:  result.Applied,
			},
			Stock:  v.Stock,
			Status: v.Status,
			Images: v.Images,
		})
	}

	return dto
}

// activeDealPercentage returns the deal percentage when the deal is enabled
// and inside its window at now, nil otherwise.
func activeDealPercentage(deal *models.Deal, now time.Time) *decimal.Decimal {
	if deal == nil || deal.Status != enums.DealStatusEnabled {
		return nil
	}
	if deal.StartsAt != nil && now.Before(*deal.StartsAt) {
		return nil
	}
	if deal.EndsAt != nil && now.After(*deal.EndsAt) {
		return nil
	}
	pct := deal.DiscountPercentage
	return &pct
}
