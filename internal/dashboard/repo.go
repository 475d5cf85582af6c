package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the dashboards.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a dashboard repository on the shared database client.
func NewRepository(client *dbpkg.Client) *Repository {
	return &Repository{db: client.DB()}
}

// Totals are the headline admin counters. Revenue counts paid orders only.
type Totals struct {
	Users    int64           `json:"users"`
	Vendors  int64           `json:"vendors"`
	Products int64           `json:"products"`
	Orders   int64           `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// CountTotals gathers the headline counters.
func (r *Repository) CountTotals(ctx context.Context) (*Totals, error) {
	totals := &Totals{Revenue: decimal.Zero}

	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&totals.Users).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Vendor{}).Count(&totals.Vendors).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&totals.Products).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&totals.Orders).Error; err != nil {
		return nil, err
	}

	var revenue struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total_price), 0) AS total").
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	totals.Revenue = revenue.Total
	return totals, nil
}

// StatusCount is one order-status bucket.
type StatusCount struct {
	Status enums.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
}

// OrdersByStatus buckets orders by lifecycle status.
func (r *Repository) OrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentOrders returns the newest orders for the admin overview.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// TopProduct is one row of the best-seller ranking.
type TopProduct struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// TopProducts ranks products by units sold, optionally scoped to a vendor.
func (r *Repository) TopProducts(ctx context.Context, vendorID uuid.UUID, since time.Time, limit int) ([]TopProduct, error) {
	query := r.db.WithContext(ctx).
		Table("order_items").
		Select(`order_items.product_id, order_items.name,
			SUM(order_items.quantity) AS units_sold,
			COALESCE(SUM(order_items.line_total), 0) AS revenue`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", enums.OrderStatusCancelled).
		Where("order_items.created_at >= ?", since).
		Group("order_items.product_id, order_items.name").
		Order("units_sold DESC").
		Limit(limit)

	if vendorID != uuid.Nil {
		query = query.Where("order_items.vendor_id = ?", vendorID)
	}

	var rows []TopProduct
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// VendorTotals are the headline counters for one vendor.
type VendorTotals struct {
	Products  int64           `json:"products"`
	ItemsSold int64           `json:"items_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CountVendorTotals gathers a vendor's counters from their order lines.
func (r *Repository) CountVendorTotals(ctx context.Context, vendorID uuid.UUID) (*VendorTotals, error) {
	totals := &VendorTotals{Revenue: decimal.Zero}

	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("vendor_id = ?", vendorID).
		Count(&totals.Products).Error; err != nil {
		return nil, err
	}

	var sales struct {
		ItemsSold int64
		Revenue   decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select(`COALESCE(SUM(order_items.quantity), 0) AS items_sold,
			COALESCE(SUM(order_items.line_total), 0) AS revenue`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.vendor_id = ? AND orders.status <> ?", vendorID, enums.OrderStatusCancelled).
		Scan(&sales).Error
	if err != nil {
		return nil, err
	}
	totals.ItemsSold = sales.ItemsSold
	totals.Revenue = sales.Revenue
	return totals, nil
}

// VendorOrdersByStatus buckets one vendor's order lines by order status.
func (r *Repository) VendorOrdersByStatus(ctx context.Context, vendorID uuid.UUID) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("orders.status, COUNT(DISTINCT orders.id) AS count").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.vendor_id = ?", vendorID).
		Group("orders.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
