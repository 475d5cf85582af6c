package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	drops := []string{
		`DROP TABLE IF EXISTS shipping_addresses;`,
		`DROP TABLE IF EXISTS order_items;`,
		`DROP TABLE IF EXISTS orders;`,
	}
	ordersTable := `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total_price NUMERIC NOT NULL,
  shipping_fee NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  payment_method TEXT NOT NULL,
  transaction_id TEXT,
  ordered_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`
	shippingAddresses := `
CREATE TABLE shipping_addresses (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT,
  city TEXT NOT NULL,
  district TEXT NOT NULL,
  postal_code TEXT,
  country TEXT NOT NULL DEFAULT 'Nepal',
  created_at DATETIME
);`

	for _, stmt := range drops {
		require.NoError(t, db.Exec(stmt).Error)
	}
	for _, stmt := range []string{ordersTable, orderItems, shippingAddresses} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, repo *Repository, userID uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()

	vendorID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		TotalPrice:    decimal.RequireFromString("1350"),
		ShippingFee:   decimal.RequireFromString("100"),
		Status:        status,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		OrderedAt:     createdAt,
		CreatedAt:     createdAt,
		Items: []models.OrderItem{
			{
				ID:        uuid.New(),
				ProductID: uuid.New(),
				VendorID:  vendorID,
				Name:      "Ilam green tea",
				UnitPrice: decimal.RequireFromString("625"),
				Quantity:  2,
				LineTotal: decimal.RequireFromString("1250"),
				CreatedAt: createdAt,
			},
		},
		ShippingAddress: &models.ShippingAddress{
			ID:       uuid.New(),
			FullName: "Sita Sharma",
			Phone:    "9841000000",
			Line1:    "Baneshwor",
			City:     "Kathmandu",
			District: "Kathmandu",
			Country:  "Nepal",
		},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestRepositoryCreateAndFindByID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := &Repository{db: db}

	userID := uuid.New()
	seeded := seedOrder(t, repo, userID, enums.OrderStatusPending, time.Now().UTC())

	found, err := repo.FindByID(context.Background(), seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, userID, found.UserID)
	assert.True(t, found.TotalPrice.Equal(decimal.RequireFromString("1350")))
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Ilam green tea", found.Items[0].Name)
	require.NotNil(t, found.ShippingAddress)
	assert.Equal(t, "Kathmandu", found.ShippingAddress.City)
}

func TestRepositoryUpdateStatusAndPayment(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := &Repository{db: db}

	seeded := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, time.Now().UTC())

	require.NoError(t, repo.UpdateStatus(context.Background(), seeded.ID, enums.OrderStatusConfirmed))

	txn := "esewa-ref-001"
	require.NoError(t, repo.UpdatePayment(context.Background(), seeded.ID, enums.PaymentStatusPaid, &txn))

	found, err := repo.FindByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
	require.NotNil(t, found.TransactionID)
	assert.Equal(t, txn, *found.TransactionID)
}

func TestRepositoryListFiltersByUserAndStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := &Repository{db: db}

	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	older := seedOrder(t, repo, userID, enums.OrderStatusDelivered, base)
	newer := seedOrder(t, repo, userID, enums.OrderStatusPending, base.Add(10*time.Minute))
	seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, base.Add(20*time.Minute))

	rows, err := repo.List(context.Background(), ListFilter{UserID: userID}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)

	delivered := enums.OrderStatusDelivered
	rows, err = repo.List(context.Background(), ListFilter{UserID: userID, Status: &delivered}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, older.ID, rows[0].ID)
}

func TestRepositoryListVendorItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := &Repository{db: db}

	seeded := seedOrder(t, repo, uuid.New(), enums.OrderStatusConfirmed, time.Now().UTC())
	vendorID := seeded.Items[0].VendorID

	rows, err := repo.ListVendorItems(context.Background(), vendorID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, seeded.ID, rows[0].OrderID)
	assert.Equal(t, "Ilam green tea", rows[0].Name)
	assert.Equal(t, enums.OrderStatusConfirmed, rows[0].OrderStatus)

	rows, err = repo.ListVendorItems(context.Background(), uuid.New(), pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryFindStalePending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := &Repository{db: db}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	stale := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, cutoff.Add(-time.Hour))
	seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, time.Now().UTC())
	seedOrder(t, repo, uuid.New(), enums.OrderStatusConfirmed, cutoff.Add(-2*time.Hour))

	// A paid order is never stale, even if its status lags behind.
	paid := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, cutoff.Add(-3*time.Hour))
	require.NoError(t, repo.UpdatePayment(context.Background(), paid.ID, enums.PaymentStatusPaid, nil))

	rows, err := repo.FindStalePending(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
	require.Len(t, rows[0].Items, 1)
}
