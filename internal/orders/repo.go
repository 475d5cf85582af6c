package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

// Repository persists orders, their items and shipping addresses.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository on the shared database client.
func NewRepository(client *dbpkg.Client) *Repository {
	return &Repository{db: client.DB()}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the order together with its items and shipping address.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads an order with its items and shipping address.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("ShippingAddress").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for a status or payment change.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus sets the lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdatePayment records the payment outcome reported by a gateway.
func (r *Repository) UpdatePayment(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, transactionID *string) error {
	updates := map[string]any{"payment_status": status}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListFilter narrows order listings.
type ListFilter struct {
	UserID uuid.UUID
	Status *enums.OrderStatus
}

// List returns a keyset page of orders, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit))

	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListVendorItems returns the order lines that belong to one vendor, joined
// with the parent order's status columns.
func (r *Repository) ListVendorItems(ctx context.Context, vendorID uuid.UUID, page pagination.Params) ([]VendorItemRow, error) {
	query := r.db.WithContext(ctx).
		Table("order_items").
		Select(`order_items.id, order_items.order_id, order_items.product_id,
			order_items.variant_id, order_items.name, order_items.sku,
			order_items.unit_price, order_items.quantity, order_items.line_total,
			order_items.created_at,
			orders.status AS order_status, orders.payment_status, orders.ordered_at`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.vendor_id = ?", vendorID).
		Order("order_items.created_at DESC, order_items.id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit))

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(order_items.created_at, order_items.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []VendorItemRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStalePending returns unpaid PENDING orders older than the cutoff,
// capped for batch processing. Paid rows are skipped; settlement confirms
// them in the same transaction, but a row caught between the two writes must
// never be cancelled.
func (r *Repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND payment_status <> ? AND created_at < ?", enums.OrderStatusPending, enums.PaymentStatusPaid, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
