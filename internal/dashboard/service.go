package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

const (
	recentOrderCount = 10
	topProductCount  = 10
	// ranking window for best sellers
	topProductWindow = 30 * 24 * time.Hour
)

// Store is the aggregate-query surface the dashboard service depends on.
type Store interface {
	CountTotals(ctx context.Context) (*Totals, error)
	OrdersByStatus(ctx context.Context) ([]StatusCount, error)
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	TopProducts(ctx context.Context, vendorID uuid.UUID, since time.Time, limit int) ([]TopProduct, error)
	CountVendorTotals(ctx context.Context, vendorID uuid.UUID) (*VendorTotals, error)
	VendorOrdersByStatus(ctx context.Context, vendorID uuid.UUID) ([]StatusCount, error)
}

// AdminDashboard is the admin overview payload.
type AdminDashboard struct {
	Totals         *Totals        `json:"totals"`
	OrdersByStatus []StatusCount  `json:"orders_by_status"`
	RecentOrders   []models.Order `json:"recent_orders"`
	TopProducts    []TopProduct   `json:"top_products"`
}

// VendorDashboard is the vendor-scoped overview payload.
type VendorDashboard struct {
	Totals         *VendorTotals `json:"totals"`
	OrdersByStatus []StatusCount `json:"orders_by_status"`
	TopProducts    []TopProduct  `json:"top_products"`
}

// ServiceParams groups dependencies for the dashboard service.
type ServiceParams struct {
	Store Store
	Now   func() time.Time
}

// Service exposes the admin and vendor dashboards.
type Service interface {
	Admin(ctx context.Context) (*AdminDashboard, error)
	Vendor(ctx context.Context, vendorID uuid.UUID) (*VendorDashboard, error)
}

type service struct {
	store Store
	now   func() time.Time
}

// NewService builds the dashboard service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dashboard store is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: params.Store, now: now}, nil
}

func (s *service) Admin(ctx context.Context) (*AdminDashboard, error) {
	totals, err := s.store.CountTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count totals")
	}
	byStatus, err := s.store.OrdersByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bucket orders")
	}
	recent, err := s.store.RecentOrders(ctx, recentOrderCount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent orders")
	}
	top, err := s.store.TopProducts(ctx, uuid.Nil, s.now().Add(-topProductWindow), topProductCount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank products")
	}
	return &AdminDashboard{
		Totals:         totals,
		OrdersByStatus: byStatus,
		RecentOrders:   recent,
		TopProducts:    top,
	}, nil
}

func (s *service) Vendor(ctx context.Context, vendorID uuid.UUID) (*VendorDashboard, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	totals, err := s.store.CountVendorTotals(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count vendor totals")
	}
	byStatus, err := s.store.VendorOrdersByStatus(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bucket vendor orders")
	}
	top, err := s.store.TopProducts(ctx, vendorID, s.now().Add(-topProductWindow), topProductCount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank vendor products")
	}
	return &VendorDashboard{
		Totals:         totals,
		OrdersByStatus: byStatus,
		TopProducts:    top,
	}, nil
}
