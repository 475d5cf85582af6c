package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/api/responses"
	"github.com/ashimneupane/bazarly-backend/api/validators"
	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/types"
)

type createProductPayload struct {
	SubcategoryID uuid.UUID        `json:"subcategory_id" validate:"required"`
	Name          string           `json:"name" validate:"required"`
	Description   string           `json:"description" validate:"required"`
	Brand         *string          `json:"brand,omitempty"`
	HasVariants   bool             `json:"has_variants"`
	BasePrice     *decimal.Decimal `json:"base_price,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	DiscountType  *string          `json:"discount_type,omitempty"`
	Stock         *int             `json:"stock,omitempty"`
	LowStockAt    *int             `json:"low_stock_at,omitempty"`
	Images        []string         `json:"images,omitempty"`
	Variants      []variantPayload `json:"variants,omitempty"`
}

type updateProductPayload struct {
	SubcategoryID *uuid.UUID       `json:"subcategory_id,omitempty"`
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Brand         *string          `json:"brand,omitempty"`
	BasePrice     *decimal.Decimal `json:"base_price,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	DiscountType  *string          `json:"discount_type,omitempty"`
	ClearDiscount bool             `json:"clear_discount,omitempty"`
	Stock         *int             `json:"stock,omitempty"`
	LowStockAt    *int             `json:"low_stock_at,omitempty"`
	Images        []string         `json:"images,omitempty"`
}

type variantPayload struct {
	SKU          string             `json:"sku" validate:"required"`
	Attributes   types.AttributeMap `json:"attributes" validate:"required"`
	BasePrice    decimal.Decimal    `json:"base_price" validate:"required"`
	Discount     *decimal.Decimal   `json:"discount,omitempty"`
	DiscountType *string            `json:"discount_type,omitempty"`
	Stock        int                `json:"stock" validate:"min=0"`
	LowStockAt   *int               `json:"low_stock_at,omitempty"`
	Images       []string           `json:"images,omitempty"`
}

type updateVariantPayload struct {
	Attributes   types.AttributeMap `json:"attributes,omitempty"`
	BasePrice    *decimal.Decimal   `json:"base_price,omitempty"`
	Discount     *decimal.Decimal   `json:"discount,omitempty"`
	DiscountType *string            `json:"discount_type,omitempty"`
	Stock        *int               `json:"stock,omitempty"`
	LowStockAt   *int               `json:"low_stock_at,omitempty"`
	Images       []string           `json:"images,omitempty"`
}

type setFeaturedPayload struct {
	Featured bool `json:"featured"`
}

// GetProduct returns the priced public view of one product.
func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts returns a filtered, cursor-paginated product listing.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filter, err := parseProductFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.List(ctx, *filter, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListVendorProducts returns the authenticated vendor's own catalog.
func ListVendorProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.List(ctx, products.ListFilter{VendorID: &vendorID}, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CreateProduct lists a new product under the authenticated vendor.
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		discountType, err := parseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variants := make([]products.VariantInput, 0, len(payload.Variants))
		for _, v := range payload.Variants {
			variantDiscountType, err := parseDiscountType(v.DiscountType)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			variants = append(variants, products.VariantInput{
				SKU:          v.SKU,
				Attributes:   v.Attributes,
				BasePrice:    v.BasePrice,
				Discount:     v.Discount,
				DiscountType: variantDiscountType,
				Stock:        v.Stock,
				LowStockAt:   v.LowStockAt,
				Images:       v.Images,
			})
		}

		product, err := svc.Create(ctx, vendorID, products.CreateProductInput{
			SubcategoryID: payload.SubcategoryID,
			Name:          payload.Name,
			Description:   payload.Description,
			Brand:         payload.Brand,
			HasVariants:   payload.HasVariants,
			BasePrice:     payload.BasePrice,
			Discount:      payload.Discount,
			DiscountType:  discountType,
			Stock:         payload.Stock,
			LowStockAt:    payload.LowStockAt,
			Images:        payload.Images,
			Variants:      variants,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCreated(w, product)
	}
}

// mutationVendorID resolves the acting vendor for catalog writes. Elevated
// principals act without an ownership scope.
func mutationVendorID(r *http.Request, elevated bool) (uuid.UUID, error) {
	if elevated {
		return uuid.Nil, nil
	}
	return currentVendorID(r)
}

// UpdateProduct applies a partial update to a product. Vendors may only touch
// their own; elevated callers skip the ownership check.
func UpdateProduct(svc products.Service, logg *logger.Logger, elevated bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := mutationVendorID(r, elevated)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		discountType, err := parseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.Update(ctx, vendorID, productID, products.UpdateProductInput{
			SubcategoryID: payload.SubcategoryID,
			Name:          payload.Name,
			Description:   payload.Description,
			Brand:         payload.Brand,
			BasePrice:     payload.BasePrice,
			Discount:      payload.Discount,
			DiscountType:  discountType,
			ClearDiscount: payload.ClearDiscount,
			Stock:         payload.Stock,
			LowStockAt:    payload.LowStockAt,
			Images:        payload.Images,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct removes a product, scoped to the vendor unless elevated.
func DeleteProduct(svc products.Service, logg *logger.Logger, elevated bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := mutationVendorID(r, elevated)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, vendorID, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "product deleted")
	}
}

// AddVariant attaches a new variant to a variant-tracked product.
func AddVariant(svc products.Service, logg *logger.Logger, elevated bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := mutationVendorID(r, elevated)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload variantPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		discountType, err := parseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.AddVariant(ctx, vendorID, productID, products.VariantInput{
			SKU:          payload.SKU,
			Attributes:   payload.Attributes,
			BasePrice:    payload.BasePrice,
			Discount:     payload.Discount,
			DiscountType: discountType,
			Stock:        payload.Stock,
			LowStockAt:   payload.LowStockAt,
			Images:       payload.Images,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCreated(w, product)
	}
}

// UpdateVariant applies a partial update to one variant.
func UpdateVariant(svc products.Service, logg *logger.Logger, elevated bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := mutationVendorID(r, elevated)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variantID, err := validators.UUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateVariantPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		discountType, err := parseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.UpdateVariant(ctx, vendorID, productID, variantID, products.UpdateVariantInput{
			Attributes:   payload.Attributes,
			BasePrice:    payload.BasePrice,
			Discount:     payload.Discount,
			DiscountType: discountType,
			Stock:        payload.Stock,
			LowStockAt:   payload.LowStockAt,
			Images:       payload.Images,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeleteVariant removes one variant. Deleting the last variant of a
// variant-tracked product is rejected by the service.
func DeleteVariant(svc products.Service, logg *logger.Logger, elevated bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		vendorID, err := mutationVendorID(r, elevated)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variantID, err := validators.UUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteVariant(ctx, vendorID, productID, variantID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "variant deleted")
	}
}

// SetFeatured toggles a product's homepage-featured flag.
func SetFeatured(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload setFeaturedPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.SetFeatured(ctx, productID, payload.Featured); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "featured flag updated")
	}
}

func parseProductFilter(r *http.Request) (*products.ListFilter, error) {
	filter := products.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}

	uuidFilters := map[string]**uuid.UUID{
		"vendor_id":      &filter.VendorID,
		"category_id":    &filter.CategoryID,
		"subcategory_id": &filter.SubcategoryID,
		"deal_id":        &filter.DealID,
		"banner_id":      &filter.BannerID,
	}
	for key, target := range uuidFilters {
		raw := strings.TrimSpace(r.URL.Query().Get(key))
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]string{"field": key})
		}
		*target = &id
	}

	priceFilters := map[string]**decimal.Decimal{
		"min_price": &filter.MinPrice,
		"max_price": &filter.MaxPrice,
	}
	for key, target := range priceFilters {
		raw := strings.TrimSpace(r.URL.Query().Get(key))
		if raw == "" {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid price bound").WithDetails(map[string]string{"field": key})
		}
		*target = &price
	}

	filter.FeaturedOnly = r.URL.Query().Get("featured") == "true"
	filter.InStockOnly = r.URL.Query().Get("in_stock") == "true"
	return &filter, nil
}

func parseDiscountType(raw *string) (*enums.DiscountType, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := enums.ParseDiscountType(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	return &parsed, nil
}
