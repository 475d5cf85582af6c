package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashimneupane/bazarly-backend/internal/products"
	pkgauth "github.com/ashimneupane/bazarly-backend/pkg/auth"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
	"github.com/ashimneupane/bazarly-backend/pkg/pagination"
)

type stubProductService struct{}

func (stubProductService) Get(context.Context, uuid.UUID) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) List(context.Context, products.ListFilter, pagination.Params) (*products.ProductPage, error) {
	return &products.ProductPage{Items: []products.ProductDTO{}}, nil
}

func (stubProductService) Create(context.Context, uuid.UUID, products.CreateProductInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) Update(context.Context, uuid.UUID, uuid.UUID, products.UpdateProductInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (stubProductService) AddVariant(context.Context, uuid.UUID, uuid.UUID, products.VariantInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) UpdateVariant(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, products.UpdateVariantInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) DeleteVariant(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	panic("unimplemented")
}

func (stubProductService) SetFeatured(context.Context, uuid.UUID, bool) error {
	panic("unimplemented")
}

func testRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "bazarly-test",
		ExpirationMinutes: 15,
	}
	logg := logger.New(logger.Options{ServiceName: "routes-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	handler := NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Products: stubProductService{},
	})
	return handler, cfg
}

func mintToken(t *testing.T, cfg *config.Config, principal enums.Principal, role *enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		SubjectID: uuid.New(),
		Principal: principal,
		Role:      role,
		JTI:       uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPublicProductListing(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCustomerGroupRejectsMissingToken(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/my/cart/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestVendorGroupRejectsUserToken(t *testing.T) {
	handler, cfg := testRouter(t)

	role := enums.RoleUser
	token := mintToken(t, cfg, enums.PrincipalUser, &role)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/products/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	handler, cfg := testRouter(t)

	role := enums.RoleUser
	token := mintToken(t, cfg, enums.PrincipalUser, &role)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAdminCanDeleteAnyProduct(t *testing.T) {
	handler, cfg := testRouter(t)

	role := enums.RoleAdmin
	token := mintToken(t, cfg, enums.PrincipalUser, &role)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestVendorCanListOwnProducts(t *testing.T) {
	handler, cfg := testRouter(t)

	token := mintToken(t, cfg, enums.PrincipalVendor, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/products/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}
