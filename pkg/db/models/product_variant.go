package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/types"
)

// ProductVariant is a SKU-level sub-entity of a Product, distinguished by its
// attribute map. Deleted together with the parent product.
type ProductVariant struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID           `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_variants_product_sku_key"`
	SKU               string              `gorm:"column:sku;type:text;not null;uniqueIndex:product_variants_product_sku_key"`
	BasePrice         decimal.Decimal     `gorm:"column:base_price;type:numeric(12,2);not null"`
	Discount          decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	DiscountType      enums.DiscountType  `gorm:"column:discount_type;type:text;not null;default:'PERCENTAGE'"`
	Stock             int                 `gorm:"column:stock;not null;default:0"`
	LowStockThreshold int                 `gorm:"column:low_stock_threshold;not null;default:5"`
	Status            enums.ProductStatus `gorm:"column:status;type:text;not null;default:'AVAILABLE'"`
	Attributes        types.AttributeMap  `gorm:"column:attributes;type:jsonb;serializer:json"`
	Images            pq.StringArray      `gorm:"column:images;type:text[];not null;default:ARRAY[]::text[]"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
