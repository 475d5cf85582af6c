package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

type fakeStore struct {
	totals       *Totals
	vendorTotals map[uuid.UUID]*VendorTotals
	topCalls     []uuid.UUID
}

func (f *fakeStore) CountTotals(_ context.Context) (*Totals, error) {
	return f.totals, nil
}

func (f *fakeStore) OrdersByStatus(_ context.Context) ([]StatusCount, error) {
	return []StatusCount{
		{Status: enums.OrderStatusPending, Count: 2},
		{Status: enums.OrderStatusDelivered, Count: 5},
	}, nil
}

func (f *fakeStore) RecentOrders(_ context.Context, limit int) ([]models.Order, error) {
	return make([]models.Order, limit), nil
}

func (f *fakeStore) TopProducts(_ context.Context, vendorID uuid.UUID, _ time.Time, _ int) ([]TopProduct, error) {
	f.topCalls = append(f.topCalls, vendorID)
	return []TopProduct{{ProductID: uuid.New(), Name: "Copper Bottle", UnitsSold: 42}}, nil
}

func (f *fakeStore) CountVendorTotals(_ context.Context, vendorID uuid.UUID) (*VendorTotals, error) {
	return f.vendorTotals[vendorID], nil
}

func (f *fakeStore) VendorOrdersByStatus(_ context.Context, _ uuid.UUID) ([]StatusCount, error) {
	return []StatusCount{{Status: enums.OrderStatusConfirmed, Count: 3}}, nil
}

func TestAdminDashboard(t *testing.T) {
	store := &fakeStore{
		totals: &Totals{
			Users:   100,
			Vendors: 12,
			Orders:  250,
			Revenue: decimal.RequireFromString("125000.50"),
		},
	}
	svc, err := NewService(ServiceParams{Store: store})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	dash, err := svc.Admin(context.Background())
	if err != nil {
		t.Fatalf("Admin: %v", err)
	}
	if dash.Totals.Users != 100 {
		t.Fatalf("expected 100 users, got %d", dash.Totals.Users)
	}
	if len(dash.RecentOrders) != recentOrderCount {
		t.Fatalf("expected %d recent orders, got %d", recentOrderCount, len(dash.RecentOrders))
	}
	if len(store.topCalls) != 1 || store.topCalls[0] != uuid.Nil {
		t.Fatalf("expected unscoped top products call, got %v", store.topCalls)
	}
}

func TestVendorDashboardScoped(t *testing.T) {
	vendorID := uuid.New()
	store := &fakeStore{
		vendorTotals: map[uuid.UUID]*VendorTotals{
			vendorID: {Products: 8, ItemsSold: 30, Revenue: decimal.RequireFromString("9000")},
		},
	}
	svc, err := NewService(ServiceParams{Store: store})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	dash, err := svc.Vendor(context.Background(), vendorID)
	if err != nil {
		t.Fatalf("Vendor: %v", err)
	}
	if dash.Totals.ItemsSold != 30 {
		t.Fatalf("expected 30 items sold, got %d", dash.Totals.ItemsSold)
	}
	if len(store.topCalls) != 1 || store.topCalls[0] != vendorID {
		t.Fatalf("expected vendor-scoped ranking call, got %v", store.topCalls)
	}

	_, err = svc.Vendor(context.Background(), uuid.Nil)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
