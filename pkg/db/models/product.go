package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Product is the canonical vendor listing. When HasVariants is true the
// price/discount/stock columns are nil and pricing lives on the variants.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	SubcategoryID     uuid.UUID           `gorm:"column:subcategory_id;type:uuid;not null;index"`
	Name              string              `gorm:"column:name;type:text;not null"`
	Description       string              `gorm:"column:description;type:text;not null"`
	Brand             *string             `gorm:"column:brand"`
	HasVariants       bool                `gorm:"column:has_variants;not null;default:false"`
	BasePrice         *decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2)"`
	Discount          *decimal.Decimal    `gorm:"column:discount;type:numeric(12,2)"`
	DiscountType      *enums.DiscountType `gorm:"column:discount_type;type:text"`
	Stock             *int                `gorm:"column:stock"`
	LowStockThreshold int                 `gorm:"column:low_stock_threshold;not null;default:5"`
	Status            enums.ProductStatus `gorm:"column:status;type:text;not null;default:'AVAILABLE'"`
	Images            pq.StringArray      `gorm:"column:images;type:text[];not null;default:ARRAY[]::text[]"`
	DealID            *uuid.UUID          `gorm:"column:deal_id;type:uuid;index"`
	BannerID          *uuid.UUID          `gorm:"column:banner_id;type:uuid"`
	IsFeatured        bool                `gorm:"column:is_featured;not null;default:false"`
	Variants          []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Deal              *Deal               `gorm:"foreignKey:DealID;constraint:OnDelete:SET NULL"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
