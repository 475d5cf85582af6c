package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/api/responses"
	"github.com/ashimneupane/bazarly-backend/api/validators"
	"github.com/ashimneupane/bazarly-backend/internal/banners"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

type createBannerPayload struct {
	Title     string  `json:"title" validate:"required"`
	ImageURL  string  `json:"image_url" validate:"required"`
	TargetURL *string `json:"target_url,omitempty"`
	SortOrder int     `json:"sort_order"`
}

type updateBannerPayload struct {
	Title     *string `json:"title,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	TargetURL *string `json:"target_url,omitempty"`
	Status    *string `json:"status,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
}

type bannerProductsPayload struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1"`
}

// Homepage returns the public landing payload: active banners ordered by
// sort order, featured products, and active deals.
func Homepage(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		home, err := svc.Homepage(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, home)
	}
}

// ListBanners returns banners, optionally filtered by status.
func ListBanners(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		var status *enums.BannerStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseBannerStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid banner status"))
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

// GetBanner returns one banner with its attached products.
func GetBanner(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "bannerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		banner, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, banner)
	}
}

// CreateBanner adds a homepage banner.
func CreateBanner(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		var payload createBannerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		banner, err := svc.Create(ctx, banners.CreateInput{
			Title:     payload.Title,
			ImageURL:  payload.ImageURL,
			TargetURL: payload.TargetURL,
			SortOrder: payload.SortOrder,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteCreated(w, banner)
	}
}

// UpdateBanner applies a partial update to a banner.
func UpdateBanner(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "bannerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateBannerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var status *enums.BannerStatus
		if payload.Status != nil && *payload.Status != "" {
			parsed, err := enums.ParseBannerStatus(*payload.Status)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid banner status"))
				return
			}
			status = &parsed
		}

		banner, err := svc.Update(ctx, id, banners.UpdateInput{
			Title:     payload.Title,
			ImageURL:  payload.ImageURL,
			TargetURL: payload.TargetURL,
			Status:    status,
			SortOrder: payload.SortOrder,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, banner)
	}
}

// DeleteBanner removes a banner and detaches its products.
func DeleteBanner(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "bannerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteMessage(w, "banner deleted")
	}
}

// AttachBannerProducts adds products to a banner collection.
func AttachBannerProducts(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "bannerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload bannerProductsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		banner, err := svc.AttachProducts(ctx, id, payload.ProductIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, banner)
	}
}

// DetachBannerProducts removes products from a banner collection.
func DetachBannerProducts(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banner service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "bannerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload bannerProductsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		banner, err := svc.DetachProducts(ctx, id, payload.ProductIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, banner)
	}
}
