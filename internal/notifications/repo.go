package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Repository persists in-app notifications.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a notification repository on the shared database client.
func NewRepository(client *dbpkg.Client) *Repository {
	return &Repository{db: client.DB()}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a notification.
func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByRecipient returns a keyset page of one recipient's notifications,
// newest first.
func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal, page pagination.Params) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("recipient_id = ? AND recipient_type = ?", recipientID, recipient).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit))

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnread returns how many notifications the recipient has not read.
func (r *Repository) CountUnread(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND recipient_type = ? AND read_at IS NULL", recipientID, recipient).
		Count(&count).Error
	return count, err
}

// MarkRead stamps one notification as read, scoped to its recipient.
func (r *Repository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, recipient enums.Principal, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND recipient_type = ? AND read_at IS NULL", id, recipientID, recipient).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}

// MarkAllRead stamps every unread notification for the recipient.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipient enums.Principal, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND recipient_type = ? AND read_at IS NULL", recipientID, recipient).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}

// DeleteReadBefore prunes read notifications older than the cutoff.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
