package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/ashimneupane/bazarly-backend/pkg/auth"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "bazarly-test", ExpirationMinutes: 15}
}

func mintUserToken(t *testing.T, role enums.Role) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	token, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		SubjectID: id,
		Principal: enums.PrincipalUser,
		Role:      &role,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return id, token
}

func mintVendorToken(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	token, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		SubjectID: id,
		Principal: enums.PrincipalVendor,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return id, token
}

func TestRequireUserSeedsContext(t *testing.T) {
	userID, token := mintUserToken(t, enums.RoleUser)

	var gotID, gotRole string
	handler := RequireUser(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != userID.String() {
		t.Fatalf("expected user id %s in context, got %q", userID, gotID)
	}
	if gotRole != string(enums.RoleUser) {
		t.Fatalf("expected USER role in context, got %q", gotRole)
	}
}

func TestRequireUserRejectsMissingAndVendorTokens(t *testing.T) {
	handler := RequireUser(testJWTConfig(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rec.Code)
	}

	_, vendorToken := mintVendorToken(t)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+vendorToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for vendor token on user route, got %d", rec.Code)
	}
}

func TestRequireVendorSeedsContext(t *testing.T) {
	vendorID, token := mintVendorToken(t)

	var gotID string
	handler := RequireVendor(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = VendorIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID != vendorID.String() {
		t.Fatalf("expected vendor id %s, got %q", vendorID, gotID)
	}
}

func TestRequireRole(t *testing.T) {
	_, adminToken := mintUserToken(t, enums.RoleAdmin)
	_, userToken := mintUserToken(t, enums.RoleUser)

	chain := RequireUser(testJWTConfig(), nil)(
		RequireRole(nil, enums.RoleAdmin, enums.RoleStaff)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected admin to pass, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected plain user to be forbidden, got %d", rec.Code)
	}
}
