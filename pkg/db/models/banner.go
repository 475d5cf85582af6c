package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Banner is a promotional strip shown on the storefront home page.
// Products can be attached to a banner for curated placement.
type Banner struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string             `gorm:"column:title;type:varchar(255);not null"`
	ImageURL  string             `gorm:"column:image_url;type:text;not null"`
	TargetURL *string            `gorm:"column:target_url;type:text"`
	Status    enums.BannerStatus `gorm:"column:status;type:varchar(16);not null;default:'ACTIVE'"`
	SortOrder int                `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Products []Product `gorm:"foreignKey:BannerID"`
}
