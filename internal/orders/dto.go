package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// ItemDTO is the immutable snapshot of one order line.
type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	SKU       *string         `json:"sku,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// AddressDTO is the order's delivery address.
type AddressDTO struct {
	FullName   string  `json:"full_name"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	District   string  `json:"district"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
}

// RedirectDTO carries the gateway handoff returned after creating an order
// paid through eSewa or Khalti.
type RedirectDTO struct {
	Provider enums.PaymentMethod `json:"provider"`
	URL      string              `json:"url"`
	Method   string              `json:"method"`
	Fields   map[string]string   `json:"fields,omitempty"`
	PIDX     string              `json:"pidx,omitempty"`
}

// OrderDTO is the API projection of an order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	TransactionID   *string             `json:"transaction_id,omitempty"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	ShippingFee     decimal.Decimal     `json:"shipping_fee"`
	Items           []ItemDTO           `json:"items"`
	ShippingAddress *AddressDTO         `json:"shipping_address,omitempty"`
	Payment         *RedirectDTO        `json:"payment,omitempty"`
	OrderedAt       time.Time           `json:"ordered_at"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Page is one cursor page of orders.
type Page struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// VendorItemRow is one vendor-scoped order line joined with the parent
// order's status columns.
type VendorItemRow struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	ProductID     uuid.UUID           `json:"product_id"`
	VariantID     *uuid.UUID          `json:"variant_id,omitempty"`
	Name          string              `json:"name"`
	SKU           *string             `json:"sku,omitempty"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Quantity      int                 `json:"quantity"`
	LineTotal     decimal.Decimal     `json:"line_total"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	OrderedAt     time.Time           `json:"ordered_at"`
	CreatedAt     time.Time           `json:"created_at"`
}

// VendorItemPage is one cursor page of vendor order lines.
type VendorItemPage struct {
	Items      []VendorItemRow `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func toDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		TransactionID: order.TransactionID,
		TotalPrice:    order.TotalPrice,
		ShippingFee:   order.ShippingFee,
		OrderedAt:     order.OrderedAt,
		CreatedAt:     order.CreatedAt,
	}
	dto.Items = make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			SKU:       item.SKU,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	if order.ShippingAddress != nil {
		dto.ShippingAddress = &AddressDTO{
			FullName:   order.ShippingAddress.FullName,
			Phone:      order.ShippingAddress.Phone,
			Line1:      order.ShippingAddress.Line1,
			Line2:      order.ShippingAddress.Line2,
			City:       order.ShippingAddress.City,
			District:   order.ShippingAddress.District,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		}
	}
	return dto
}
