package controllers

import (
	"net/http"

	"github.com/ashimneupane/bazarly-backend/api/responses"
	"github.com/ashimneupane/bazarly-backend/internal/dashboard"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

// AdminDashboard returns the platform-wide overview.
func AdminDashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		overview, err := svc.Admin(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, overview)
	}
}

// VendorDashboard returns the authenticated vendor's overview.
func VendorDashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		overview, err := svc.Vendor(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, overview)
	}
}
