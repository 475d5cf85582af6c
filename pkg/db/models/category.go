package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the top level of the two-level catalog tree.
type Category struct {
	ID            uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string        `gorm:"column:name;type:text;not null;uniqueIndex"`
	Description   *string       `gorm:"column:description"`
	ImageURL      *string       `gorm:"column:image_url"`
	Subcategories []Subcategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// Subcategory is the required placement target for products.
type Subcategory struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null;uniqueIndex:subcategories_category_name_key"`
	Name       string    `gorm:"column:name;type:text;not null;uniqueIndex:subcategories_category_name_key"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
