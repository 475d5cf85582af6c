package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/ashimneupane/bazarly-backend/pkg/auth"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

type uniqueViolation struct{ constraint string }

func (e uniqueViolation) Error() string {
	return fmt.Sprintf("ERROR: duplicate key value violates unique constraint %q (SQLSTATE 23505)", e.constraint)
}

type fakeStore struct {
	users   map[uuid.UUID]*models.User
	vendors map[uuid.UUID]*models.Vendor
	tokens  map[uuid.UUID]*models.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[uuid.UUID]*models.User{},
		vendors: map[uuid.UUID]*models.Vendor{},
		tokens:  map[uuid.UUID]*models.RefreshToken{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return uniqueViolation{constraint: "users_email_key"}
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeStore) TouchUserLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := f.users[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (f *fakeStore) CreateVendor(_ context.Context, vendor *models.Vendor) error {
	for _, existing := range f.vendors {
		if existing.Email == vendor.Email {
			return uniqueViolation{constraint: "vendors_email_key"}
		}
	}
	vendor.ID = uuid.New()
	vendor.CreatedAt = time.Now()
	f.vendors[vendor.ID] = vendor
	return nil
}

func (f *fakeStore) FindVendorByEmail(_ context.Context, email string) (*models.Vendor, error) {
	for _, vendor := range f.vendors {
		if vendor.Email == email {
			copied := *vendor
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) FindVendorByID(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, ok := f.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *vendor
	return &copied, nil
}

func (f *fakeStore) TouchVendorLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if vendor, ok := f.vendors[id]; ok {
		vendor.LastLoginAt = &at
	}
	return nil
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeStore) FindRefreshTokenByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	for _, token := range f.tokens {
		if token.TokenHash == hash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) RevokeRefreshToken(_ context.Context, id uuid.UUID, at time.Time) error {
	if token, ok := f.tokens[id]; ok && token.RevokedAt == nil {
		token.RevokedAt = &at
	}
	return nil
}

func (f *fakeStore) RevokeAllForPrincipal(_ context.Context, principalID uuid.UUID, principal enums.Principal, at time.Time) (int64, error) {
	var n int64
	for _, token := range f.tokens {
		if token.PrincipalID == principalID && token.PrincipalType == principal && token.RevokedAt == nil {
			token.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) liveTokenCount() int {
	n := 0
	for _, token := range f.tokens {
		if token.RevokedAt == nil {
			n++
		}
	}
	return n
}

type fakeLimiter struct {
	deny map[string]bool
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	if f.deny[scope] {
		return false, 99, nil
	}
	return true, 1, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "bazarly-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func newTestService(t *testing.T, store Store, limiter RateLimiter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:      store,
		Limiter:    limiter,
		JWT:        testJWTConfig(),
		Password:   config.PasswordConfig{},
		RateLimits: config.AuthRateLimitConfig{LoginEmailLimit: 5, LoginWindow: time.Minute, RegisterEmailLimit: 3, RegisterWindow: time.Minute},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error with code %s, got %v", code, err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func TestRegisterAndLoginUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	session, err := svc.RegisterUser(ctx, RegisterUserInput{
		Email:     "Asha@Example.com",
		Password:  "correct-horse",
		FirstName: "Asha",
		LastName:  "Shrestha",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if session.User == nil || session.User.Email != "asha@example.com" {
		t.Fatalf("expected normalized email on session user, got %+v", session.User)
	}
	if session.Tokens.AccessToken == "" || session.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), enums.PrincipalUser, session.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token must parse under the user namespace: %v", err)
	}
	if claims.Role == nil || *claims.Role != enums.RoleUser {
		t.Fatalf("expected USER role claim, got %v", claims.Role)
	}

	login, err := svc.Login(ctx, LoginInput{
		Email:     "asha@example.com",
		Password:  "correct-horse",
		Principal: enums.PrincipalUser,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLoginAt == nil {
		t.Fatal("expected last login to be stamped")
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	input := RegisterUserInput{Email: "dup@example.com", Password: "longenough", FirstName: "A", LastName: "B"}
	if _, err := svc.RegisterUser(ctx, input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.RegisterUser(ctx, input)
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newFakeStore(), nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterUserInput
	}{
		{"bad email", RegisterUserInput{Email: "not-an-email", Password: "longenough", FirstName: "A", LastName: "B"}},
		{"short password", RegisterUserInput{Email: "a@example.com", Password: "short", FirstName: "A", LastName: "B"}},
		{"missing name", RegisterUserInput{Email: "a@example.com", Password: "longenough"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RegisterUser(ctx, tc.input)
			expectCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "a@example.com", Password: "longenough", FirstName: "A", LastName: "B"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong-password", Principal: enums.PrincipalUser})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever12", Principal: enums.PrincipalUser})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	session, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "a@example.com", Password: "longenough", FirstName: "A", LastName: "B"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	store.users[session.User.ID].IsActive = false

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "longenough", Principal: enums.PrincipalUser})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestLoginRateLimited(t *testing.T) {
	limiter := &fakeLimiter{deny: map[string]bool{"login:email:a@example.com": true}}
	svc := newTestService(t, newFakeStore(), limiter)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "longenough", Principal: enums.PrincipalUser})
	expectCode(t, err, pkgerrors.CodeRateLimit)
}

func TestVendorRegisterAndNamespace(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	session, err := svc.RegisterVendor(ctx, RegisterVendorInput{
		Email:     "store@example.com",
		Password:  "longenough",
		StoreName: "Thamel Crafts",
	})
	if err != nil {
		t.Fatalf("RegisterVendor: %v", err)
	}
	if session.Vendor == nil || session.Vendor.StoreName != "Thamel Crafts" {
		t.Fatalf("expected vendor on session, got %+v", session.Vendor)
	}

	if _, err := pkgauth.ParseAccessToken(testJWTConfig(), enums.PrincipalUser, session.Tokens.AccessToken); err == nil {
		t.Fatal("vendor token must not parse under the user namespace")
	}
	if _, err := pkgauth.ParseAccessToken(testJWTConfig(), enums.PrincipalVendor, session.Tokens.AccessToken); err != nil {
		t.Fatalf("vendor token should parse under the vendor namespace: %v", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	session, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "a@example.com", Password: "longenough", FirstName: "A", LastName: "B"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Refresh(ctx, session.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == session.Tokens.RefreshToken {
		t.Fatal("refresh must rotate the opaque token")
	}
	if store.liveTokenCount() != 1 {
		t.Fatalf("expected exactly 1 live token after rotation, got %d", store.liveTokenCount())
	}

	// The old token is now revoked. Replaying it is treated as theft and
	// tears down every live session for the account.
	_, err = svc.Refresh(ctx, session.Tokens.RefreshToken)
	expectCode(t, err, pkgerrors.CodeUnauthorized)
	if store.liveTokenCount() != 0 {
		t.Fatalf("expected all sessions revoked after reuse, got %d live", store.liveTokenCount())
	}
}

func TestRefreshExpired(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	svc, err := NewService(ServiceParams{
		Store: store,
		JWT:   testJWTConfig(),
		Now:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	session, err := svc.RegisterUser(context.Background(), RegisterUserInput{Email: "a@example.com", Password: "longenough", FirstName: "A", LastName: "B"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	now = now.Add(2 * time.Hour) // past the 60 minute refresh TTL
	_, err = svc.Refresh(context.Background(), session.Tokens.RefreshToken)
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogout(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	session, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "a@example.com", Password: "longenough", FirstName: "A", LastName: "B"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.Logout(ctx, session.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.liveTokenCount() != 0 {
		t.Fatal("expected token revoked on logout")
	}

	// Unknown tokens are a no-op, not an error.
	if err := svc.Logout(ctx, "definitely-not-a-token"); err != nil {
		t.Fatalf("logout of unknown token: %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	session, err := svc.RegisterUser(ctx, RegisterUserInput{Email: "a@example.com", Password: "longenough", FirstName: "A", LastName: "B"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "longenough", Principal: enums.PrincipalUser}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if store.liveTokenCount() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", store.liveTokenCount())
	}

	if err := svc.LogoutAll(ctx, session.User.ID, enums.PrincipalUser); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if store.liveTokenCount() != 0 {
		t.Fatalf("expected all sessions revoked, got %d live", store.liveTokenCount())
	}
}
