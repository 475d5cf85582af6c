package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashimneupane/bazarly-backend/internal/products"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
	"github.com/ashimneupane/bazarly-backend/pkg/payments/esewa"
	"github.com/ashimneupane/bazarly-backend/pkg/payments/khalti"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is the order persistence surface.
type Store interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.OrderStatus) error
	UpdatePayment(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.PaymentStatus, transactionID *string) error
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, error)
	ListVendorItems(ctx context.Context, vendorID uuid.UUID, page pagination.Params) ([]VendorItemRow, error)
}

// Stock locks and adjusts sellable quantities inside a transaction.
type Stock interface {
	LockProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	LockVariant(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ProductVariant, error)
	SetProductStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, stock int, status enums.ProductStatus) error
	SetVariantStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, stock int, status enums.ProductStatus) error
}

// Carts reads and clears the buyer's cart.
type Carts interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

// Catalog prices cart lines at order time.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error)
}

// EventEmitter queues domain events in the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notice is an in-app notification request raised by order activity.
type Notice struct {
	RecipientID uuid.UUID
	Recipient   enums.Principal
	Type        enums.NotificationType
	Title       string
	Body        string
	OrderID     *uuid.UUID
}

// Notifier records in-app notifications in the caller's transaction.
type Notifier interface {
	NotifyInTx(ctx context.Context, tx *gorm.DB, notice Notice) error
}

// EsewaGateway is the slice of the eSewa client used here.
type EsewaGateway interface {
	BuildRedirect(transactionUUID string, totalAmount decimal.Decimal) (*esewa.RedirectForm, error)
	VerifyStatus(ctx context.Context, transactionUUID string, totalAmount decimal.Decimal) (*esewa.StatusResponse, error)
}

// KhaltiGateway is the slice of the Khalti client used here.
type KhaltiGateway interface {
	Initiate(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error)
	Lookup(ctx context.Context, pidx string) (*khalti.LookupResponse, error)
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Runner       TxRunner
	Store        Store
	Stock        Stock
	Carts        Carts
	Catalog      Catalog
	Events       EventEmitter
	Notifier     Notifier
	Esewa        EsewaGateway
	Khalti       KhaltiGateway
	ShippingFee  decimal.Decimal
	Logger       *logger.Logger
	Now          func() time.Time
}

// Service exposes order placement and lifecycle management.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*Page, error)
	ListAll(ctx context.Context, status *enums.OrderStatus, page pagination.Params) (*Page, error)
	ListVendorItems(ctx context.Context, vendorID uuid.UUID, page pagination.Params) (*VendorItemPage, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ConfirmEsewaPayment(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ConfirmKhaltiPayment(ctx context.Context, orderID uuid.UUID, pidx string) (*OrderDTO, error)
	FailPayment(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
}

// CreateInput carries the checkout request.
type CreateInput struct {
	PaymentMethod enums.PaymentMethod
	Address       AddressDTO
}

type service struct {
	runner      TxRunner
	store       Store
	stock       Stock
	carts       Carts
	catalog     Catalog
	events      EventEmitter
	notifier    Notifier
	esewa       EsewaGateway
	khalti      KhaltiGateway
	shippingFee decimal.Decimal
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Runner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order store is required")
	case params.Stock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock is required")
	case params.Carts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carts is required")
	case params.Catalog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	case params.Events == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event emitter is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		runner:      params.Runner,
		store:       params.Store,
		stock:       params.Stock,
		carts:       params.Carts,
		catalog:     params.Catalog,
		events:      params.Events,
		notifier:    params.Notifier,
		esewa:       params.Esewa,
		khalti:      params.Khalti,
		shippingFee: params.ShippingFee,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// line pairs a cart item with its priced catalog projection.
type line struct {
	item    models.CartItem
	product *products.ProductDTO
	variant *products.VariantDTO
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := validateAddress(input.Address); err != nil {
		return nil, err
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines, err := s.priceLines(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(userID, input, lines)

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		for _, ln := range lines {
			if err := s.reserveStock(ctx, tx, ln); err != nil {
				return err
			}
		}
		if err := s.store.Create(ctx, tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.carts.Clear(ctx, tx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &userID},
			Data: map[string]any{
				"orderId":       order.ID,
				"totalPrice":    order.TotalPrice,
				"paymentMethod": order.PaymentMethod,
				"itemCount":     len(order.Items),
			},
			Version: 1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}
		return s.notifyOrderPlaced(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	dto := toDTO(order)
	if order.PaymentMethod.RequiresGateway() {
		redirect, err := s.initiatePayment(ctx, order)
		if err != nil {
			// the order stands; payment can be retried from the order page
			if s.logg != nil {
				lctx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "error": err.Error()})
				s.logg.Warn(lctx, "payment initiation failed after order creation")
			}
		} else {
			dto.Payment = redirect
		}
	}
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := toDTO(order)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.list(ctx, ListFilter{UserID: userID}, page)
}

func (s *service) ListAll(ctx context.Context, status *enums.OrderStatus, page pagination.Params) (*Page, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	return s.list(ctx, ListFilter{Status: status}, page)
}

func (s *service) ListVendorItems(ctx context.Context, vendorID uuid.UUID, page pagination.Params) (*VendorItemPage, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	rows, err := s.store.ListVendorItems(ctx, vendorID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor order items")
	}
	trimmed, hasMore := pagination.Trim(rows, page.Limit)
	result := &VendorItemPage{Items: trimmed}
	if hasMore && len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*OrderDTO, error) {
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(order.Status, status); err != nil {
			return err
		}
		if status == enums.OrderStatusCancelled {
			if err := s.restock(ctx, tx, orderID); err != nil {
				return err
			}
		}
		if err := s.store.UpdateStatus(ctx, tx, orderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		// cash settles on handover
		if status == enums.OrderStatusDelivered &&
			order.PaymentMethod == enums.PaymentMethodCashOnDelivery &&
			order.PaymentStatus == enums.PaymentStatusPending {
			if err := s.store.UpdatePayment(ctx, tx, orderID, enums.PaymentStatusPaid, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
			}
		}

		eventType := enums.EventOrderStatusChanged
		if status == enums.OrderStatusCancelled {
			eventType = enums.EventOrderCancelled
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actor,
			Data:          map[string]any{"orderId": orderID, "from": order.Status, "to": status},
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}

		if s.notifier != nil {
			id := orderID
			return s.notifier.NotifyInTx(ctx, tx, Notice{
				RecipientID: order.UserID,
				Recipient:   enums.PrincipalUser,
				Type:        enums.NotificationTypeOrderStatus,
				Title:       "Order " + shortID(orderID) + " is now " + status.String(),
				Body:        fmt.Sprintf("Your order moved from %s to %s.", order.Status, status),
				OrderID:     &id,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, uuid.Nil, orderID)
}

// Cancel lets the buyer abort their own order while it is still PENDING or
// CONFIRMED. Stock reserved at checkout is returned.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	id := userID
	return s.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled, &outbox.ActorRef{UserID: &id})
}

func (s *service) ConfirmEsewaPayment(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if s.esewa == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "esewa is not configured")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodEsewa {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order was not placed with esewa")
	}
	status, err := s.esewa.VerifyStatus(ctx, order.ID.String(), order.TotalPrice)
	if err != nil {
		return nil, err
	}
	if status.Status != esewa.StatusComplete {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "esewa reports payment as "+status.Status)
	}
	return s.settle(ctx, order, &status.RefID)
}

func (s *service) ConfirmKhaltiPayment(ctx context.Context, orderID uuid.UUID, pidx string) (*OrderDTO, error) {
	if s.khalti == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "khalti is not configured")
	}
	if pidx == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pidx is required")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodKhalti {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order was not placed with khalti")
	}
	lookup, err := s.khalti.Lookup(ctx, pidx)
	if err != nil {
		return nil, err
	}
	if lookup.Status != khalti.StatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "khalti reports payment as "+lookup.Status)
	}
	transactionID := lookup.TransactionID
	return s.settle(ctx, order, &transactionID)
}

// FailPayment records a gateway cancel or failure callback. The order stays
// PENDING so the buyer can retry the payment or the order eventually expires.
func (s *service) FailPayment(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.PaymentMethod.RequiresGateway() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order was not placed through a payment gateway")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is already completed")
	}
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.store.UpdatePayment(ctx, tx, order.ID, enums.PaymentStatusFailed, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment failure")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, uuid.Nil, order.ID)
}

func (s *service) settle(ctx context.Context, order *models.Order, transactionID *string) (*OrderDTO, error) {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		dto := toDTO(order)
		return &dto, nil
	}
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.store.UpdatePayment(ctx, tx, order.ID, enums.PaymentStatusPaid, transactionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          map[string]any{"orderId": order.ID, "method": order.PaymentMethod},
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payment event")
		}
		// A settled payment confirms the order in the same transaction.
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		if err := s.store.UpdateStatus(ctx, tx, order.ID, enums.OrderStatusConfirmed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm paid order")
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          map[string]any{"orderId": order.ID, "from": order.Status, "to": enums.OrderStatusConfirmed},
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}
		if s.notifier != nil {
			id := order.ID
			return s.notifier.NotifyInTx(ctx, tx, Notice{
				RecipientID: order.UserID,
				Recipient:   enums.PrincipalUser,
				Type:        enums.NotificationTypeOrderStatus,
				Title:       "Order " + shortID(order.ID) + " is now " + enums.OrderStatusConfirmed.String(),
				Body:        fmt.Sprintf("Your order moved from %s to %s.", order.Status, enums.OrderStatusConfirmed),
				OrderID:     &id,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, uuid.Nil, order.ID)
}

func (s *service) initiatePayment(ctx context.Context, order *models.Order) (*RedirectDTO, error) {
	switch order.PaymentMethod {
	case enums.PaymentMethodEsewa:
		if s.esewa == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "esewa is not configured")
		}
		form, err := s.esewa.BuildRedirect(order.ID.String(), order.TotalPrice)
		if err != nil {
			return nil, err
		}
		return &RedirectDTO{
			Provider: enums.PaymentMethodEsewa,
			URL:      form.URL,
			Method:   form.Method,
			Fields:   form.Fields,
		}, nil
	case enums.PaymentMethodKhalti:
		if s.khalti == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "khalti is not configured")
		}
		resp, err := s.khalti.Initiate(ctx, khalti.InitiateRequest{
			OrderID:   order.ID.String(),
			OrderName: "Order " + shortID(order.ID),
			Amount:    order.TotalPrice,
		})
		if err != nil {
			return nil, err
		}
		return &RedirectDTO{
			Provider: enums.PaymentMethodKhalti,
			URL:      resp.PaymentURL,
			Method:   "GET",
			PIDX:     resp.PIDX,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method needs no gateway")
	}
}

func (s *service) priceLines(ctx context.Context, items []models.CartItem) ([]line, error) {
	lines := make([]line, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		ln := line{item: item, product: product}
		if item.VariantID != nil {
			for i := range product.Variants {
				if product.Variants[i].ID == *item.VariantID {
					ln.variant = &product.Variants[i]
					break
				}
			}
			if ln.variant == nil {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, product.Name+" variant is no longer available")
			}
		} else if product.Price == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, product.Name+" is no longer purchasable")
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

func (s *service) buildOrder(userID uuid.UUID, input CreateInput, lines []line) *models.Order {
	now := s.now()
	order := &models.Order{
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: input.PaymentMethod,
		ShippingFee:   s.shippingFee,
		OrderedAt:     now,
		ShippingAddress: &models.ShippingAddress{
			FullName:   input.Address.FullName,
			Phone:      input.Address.Phone,
			Line1:      input.Address.Line1,
			Line2:      input.Address.Line2,
			City:       input.Address.City,
			District:   input.Address.District,
			PostalCode: input.Address.PostalCode,
			Country:    addressCountry(input.Address),
		},
	}

	total := s.shippingFee
	for _, ln := range lines {
		unit := ln.product.Price
		var sku *string
		name := ln.product.Name
		if ln.variant != nil {
			unit = &ln.variant.Price
			skuCopy := ln.variant.SKU
			sku = &skuCopy
		}
		lineTotal := unit.EffectivePrice.Mul(decimal.NewFromInt(int64(ln.item.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ProductID: ln.item.ProductID,
			VariantID: ln.item.VariantID,
			VendorID:  ln.product.VendorID,
			Name:      name,
			SKU:       sku,
			UnitPrice: unit.EffectivePrice,
			Quantity:  ln.item.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.TotalPrice = total
	return order
}

func (s *service) reserveStock(ctx context.Context, tx *gorm.DB, ln line) error {
	quantity := ln.item.Quantity
	if ln.variant != nil {
		variant, err := s.stock.LockVariant(ctx, tx, ln.variant.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant stock")
		}
		if variant.Stock < quantity {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for "+ln.product.Name)
		}
		remaining := variant.Stock - quantity
		status := enums.StatusForStock(remaining, variant.LowStockThreshold)
		return s.stock.SetVariantStock(ctx, tx, variant.ID, remaining, status)
	}

	product, err := s.stock.LockProduct(ctx, tx, ln.item.ProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product stock")
	}
	if product.Stock == nil || *product.Stock < quantity {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for "+ln.product.Name)
	}
	remaining := *product.Stock - quantity
	status := enums.StatusForStock(remaining, product.LowStockThreshold)
	return s.stock.SetProductStock(ctx, tx, product.ID, remaining, status)
}

// restock returns reserved quantities when an order is cancelled.
func (s *service) restock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	for _, item := range order.Items {
		if item.VariantID != nil {
			variant, err := s.stock.LockVariant(ctx, tx, *item.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant stock")
			}
			restored := variant.Stock + item.Quantity
			if err := s.stock.SetVariantStock(ctx, tx, variant.ID, restored, enums.StatusForStock(restored, variant.LowStockThreshold)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore variant stock")
			}
			continue
		}
		product, err := s.stock.LockProduct(ctx, tx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product stock")
		}
		current := 0
		if product.Stock != nil {
			current = *product.Stock
		}
		restored := current + item.Quantity
		if err := s.stock.SetProductStock(ctx, tx, product.ID, restored, enums.StatusForStock(restored, product.LowStockThreshold)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore product stock")
		}
	}
	return nil
}

func (s *service) notifyOrderPlaced(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if s.notifier == nil {
		return nil
	}
	id := order.ID
	if err := s.notifier.NotifyInTx(ctx, tx, Notice{
		RecipientID: order.UserID,
		Recipient:   enums.PrincipalUser,
		Type:        enums.NotificationTypeOrderPlaced,
		Title:       "Order " + shortID(order.ID) + " placed",
		Body:        fmt.Sprintf("We received your order of %d item(s), total %s.", len(order.Items), order.TotalPrice),
		OrderID:     &id,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify buyer")
	}

	seen := map[uuid.UUID]bool{}
	for _, item := range order.Items {
		if seen[item.VendorID] {
			continue
		}
		seen[item.VendorID] = true
		if err := s.notifier.NotifyInTx(ctx, tx, Notice{
			RecipientID: item.VendorID,
			Recipient:   enums.PrincipalVendor,
			Type:        enums.NotificationTypeOrderPlaced,
			Title:       "New order " + shortID(order.ID),
			Body:        "You have new items to fulfil.",
			OrderID:     &id,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify vendor")
		}
	}
	return nil
}

func (s *service) list(ctx context.Context, filter ListFilter, page pagination.Params) (*Page, error) {
	rows, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	trimmed, hasMore := pagination.Trim(rows, page.Limit)
	result := &Page{Items: make([]OrderDTO, 0, len(trimmed))}
	for i := range trimmed {
		result.Items = append(result.Items, toDTO(&trimmed[i]))
	}
	if hasMore && len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.FindByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

func validateAddress(address AddressDTO) error {
	switch {
	case address.FullName == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient name is required")
	case address.Phone == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	case address.Line1 == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "address line is required")
	case address.City == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	case address.District == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "district is required")
	}
	return nil
}

func addressCountry(address AddressDTO) string {
	if address.Country == "" {
		return "Nepal"
	}
	return address.Country
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
