package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Deal is an admin-managed percentage promotion that products can be
// attached to. Disabling a deal keeps product links intact; deleting it
// detaches every linked product.
type Deal struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title              string           `gorm:"column:title;type:varchar(255);not null"`
	Description        *string          `gorm:"column:description;type:text"`
	DiscountPercentage decimal.Decimal  `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
	Status             enums.DealStatus `gorm:"column:status;type:varchar(16);not null;default:'ENABLED'"`
	StartsAt           *time.Time       `gorm:"column:starts_at"`
	EndsAt             *time.Time       `gorm:"column:ends_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Products []Product `gorm:"foreignKey:DealID"`
}
