package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/api/middleware"
	"github.com/ashimneupane/bazarly-backend/api/responses"
	"github.com/ashimneupane/bazarly-backend/api/validators"
	"github.com/ashimneupane/bazarly-backend/internal/deals"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/outbox"
)

type createDealPayload struct {
	Title              string          `json:"title" validate:"required"`
	Description        *string         `json:"description,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" validate:"required"`
	StartsAt           *time.Time      `json:"starts_at,omitempty"`
	EndsAt             *time.Time      `json:"ends_at,omitempty"`
}

type updateDealPayload struct {
	Title              *string          `json:"title,omitempty"`
	Description        *string          `json:"description,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	StartsAt           *time.Time       `json:"starts_at,omitempty"`
	EndsAt             *time.Time       `json:"ends_at,omitempty"`
	ClearWindow        bool             `json:"clear_window,omitempty"`
}

type dealProductsPayload struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1"`
}

type dealStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// ListDeals returns deals, optionally filtered by status. The public
// route pins the filter to ACTIVE.
func ListDeals(svc deals.Service, logg *logger.Logger, publicOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		var status *enums.DealStatus
		if publicOnly {
			active := enums.DealStatusEnabled
			status = &active
		} else if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseDealStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid deal status"))
				return
			}
			status = &parsed
		}

		list, err := svc.List(ctx, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// GetDeal returns one deal with its attached products.
func GetDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "dealID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deal, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, deal)
	}
}

// CreateDeal adds a platform-wide discount campaign.
func CreateDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		var payload createDealPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deal, err := svc.Create(ctx, deals.CreateInput{
			Title:              payload.Title,
			Description:        payload.Description,
			DiscountPercentage: payload.DiscountPercentage,
			StartsAt:           payload.StartsAt,
			EndsAt:             payload.EndsAt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCreated(w, deal)
	}
}

// UpdateDeal applies a partial update to a deal.
func UpdateDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "dealID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateDealPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deal, err := svc.Update(ctx, id, deals.UpdateInput{
			Title:              payload.Title,
			Description:        payload.Description,
			DiscountPercentage: payload.DiscountPercentage,
			StartsAt:           payload.StartsAt,
			EndsAt:             payload.EndsAt,
			ClearWindow:        payload.ClearWindow,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, deal)
	}
}

// DeleteDeal removes a deal and detaches its products.
func DeleteDeal(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "dealID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var actor *outbox.ActorRef
		if userID, err := currentUserID(r); err == nil {
			actor = &outbox.ActorRef{UserID: &userID, Role: middleware.RoleFromContext(ctx)}
		}

		if err := svc.Delete(ctx, id, actor); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "deal deleted")
	}
}

// AttachDealProducts adds products to a deal.
func AttachDealProducts(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "dealID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload dealProductsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deal, err := svc.AttachProducts(ctx, id, payload.ProductIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, deal)
	}
}

// DetachDealProducts removes products from a deal.
func DetachDealProducts(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "dealID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload dealProductsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deal, err := svc.DetachProducts(ctx, id, payload.ProductIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, deal)
	}
}

// SetDealStatus activates, pauses, or expires a deal.
func SetDealStatus(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deal service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "dealID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload dealStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := enums.ParseDealStatus(payload.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid deal status"))
			return
		}

		deal, err := svc.SetStatus(ctx, id, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, deal)
	}
}
