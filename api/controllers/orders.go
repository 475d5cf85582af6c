package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ashimneupane/bazarly-backend/api/middleware"
	"github.com/ashimneupane/bazarly-backend/api/responses"
	"github.com/ashimneupane/bazarly-backend/api/validators"
	"github.com/ashimneupane/bazarly-backend/internal/orders"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
	redispkg "github.com/ashimneupane/bazarly-backend/pkg/redis"
)

type addressPayload struct {
	FullName   string  `json:"full_name" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	District   string  `json:"district" validate:"required"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    string  `json:"country" validate:"required"`
}

type createOrderPayload struct {
	PaymentMethod string         `json:"payment_method" validate:"required"`
	Address       addressPayload `json:"address" validate:"required"`
}

type updateOrderStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// orderIdempotencyTTL covers retried checkout submissions; after it expires
// the same key is accepted again.
const orderIdempotencyTTL = 24 * time.Hour

// CreateOrder checks out the authenticated user's cart. When the client sends
// an Idempotency-Key header, repeated submissions with the same key are
// rejected with a conflict instead of creating a second order.
func CreateOrder(svc orders.Service, idem redispkg.IdempotencyStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
			return
		}

		var idemKey string
		if idem != nil {
			if raw := strings.TrimSpace(r.Header.Get("Idempotency-Key")); raw != "" {
				idemKey = idem.IdempotencyKey("orders", userID.String()+":"+raw)
				claimed, err := idem.SetNX(ctx, idemKey, "1", orderIdempotencyTTL)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key"))
					return
				}
				if !claimed {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "an order with this idempotency key was already submitted"))
					return
				}
			}
		}

		order, err := svc.Create(ctx, userID, orders.CreateInput{
			PaymentMethod: method,
			Address: orders.AddressDTO{
				FullName:   payload.Address.FullName,
				Phone:      payload.Address.Phone,
				Line1:      payload.Address.Line1,
				Line2:      payload.Address.Line2,
				City:       payload.Address.City,
				District:   payload.Address.District,
				PostalCode: payload.Address.PostalCode,
				Country:    payload.Address.Country,
			},
		})
		if err != nil {
			// Failed checkouts release the key so the client may retry.
			if idemKey != "" {
				if delErr := idem.Del(ctx, idemKey); delErr != nil {
					logg.Warn(logg.WithField(ctx, "error", delErr.Error()), "failed to release idempotency key")
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCreated(w, order)
	}
}

// GetOrder returns one of the authenticated user's orders.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, userID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns the authenticated user's order history.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListForUser(ctx, userID, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CancelOrder cancels one of the user's own orders while it is still
// pending or confirmed.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Cancel(ctx, userID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ListAllOrders returns every order, optionally filtered by status.
func ListAllOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
				return
			}
			status = &parsed
		}

		result, err := svc.ListAll(ctx, status, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListVendorOrderItems returns the authenticated vendor's sold lines.
func ListVendorOrderItems(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListVendorItems(ctx, vendorID, page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// UpdateOrderStatus advances an order through its fulfilment lifecycle.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateOrderStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
			return
		}

		actor := &outbox.ActorRef{
			UserID: &userID,
			Role:   middleware.RoleFromContext(ctx),
		}
		order, err := svc.UpdateStatus(ctx, orderID, status, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ConfirmEsewaPayment handles the eSewa success redirect. The gateway is
// re-verified server side before the order is marked paid.
func ConfirmEsewaPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.ConfirmEsewaPayment(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ConfirmKhaltiPayment handles the Khalti return redirect, looking up the
// pidx server side before the order is marked paid.
func ConfirmKhaltiPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pidx := strings.TrimSpace(r.URL.Query().Get("pidx"))
		if pidx == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pidx is required"))
			return
		}

		order, err := svc.ConfirmKhaltiPayment(ctx, orderID, pidx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// CancelPayment handles the gateway cancel/failure redirect. The order keeps
// its PENDING status so the buyer can retry with another method.
func CancelPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.FailPayment(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
