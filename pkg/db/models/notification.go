package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Notification is an in-app message delivered to a user or a vendor.
// RecipientType disambiguates which principal table RecipientID points at.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index:notifications_recipient_idx"`
	RecipientType enums.Principal        `gorm:"column:recipient_type;type:varchar(16);not null;index:notifications_recipient_idx"`
	Type          enums.NotificationType `gorm:"column:type;type:varchar(32);not null"`
	Title         string                 `gorm:"column:title;type:varchar(255);not null"`
	Body          string                 `gorm:"column:body;type:text;not null"`
	OrderID       *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime;index:notifications_created_at_idx"`
}

// IsRead reports whether the recipient has opened the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
