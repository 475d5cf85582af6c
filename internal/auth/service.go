package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/ashimneupane/bazarly-backend/pkg/auth"
	"github.com/ashimneupane/bazarly-backend/pkg/config"
	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/security"
)

const (
	minPasswordLength = 8
	refreshTokenBytes = 32
)

// Store is the persistence surface the auth service depends on.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
	FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	TouchVendorLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, principal enums.Principal, at time.Time) (int64, error)
}

// RateLimiter is the fixed-window limiter surface, satisfied by the redis client.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	Store      Store
	Limiter    RateLimiter
	JWT        config.JWTConfig
	Password   config.PasswordConfig
	RateLimits config.AuthRateLimitConfig
	Now        func() time.Time
}

// RegisterUserInput carries a customer signup.
type RegisterUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	ClientIP  string
}

// RegisterVendorInput carries a seller signup.
type RegisterVendorInput struct {
	Email     string
	Password  string
	StoreName string
	Phone     *string
	Address   *string
	ClientIP  string
}

// LoginInput carries a credential login for either principal.
type LoginInput struct {
	Email     string
	Password  string
	Principal enums.Principal
	ClientIP  string
}

// TokenPair is the credential material returned on register, login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserDTO is the customer account shape returned to clients.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// VendorDTO is the seller account shape returned to clients.
type VendorDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	StoreName   string     `json:"store_name"`
	Phone       *string    `json:"phone,omitempty"`
	Address     *string    `json:"address,omitempty"`
	LogoURL     *string    `json:"logo_url,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session is an authenticated session with the owning account attached.
type Session struct {
	Tokens TokenPair  `json:"tokens"`
	User   *UserDTO   `json:"user,omitempty"`
	Vendor *VendorDTO `json:"vendor,omitempty"`
}

// Service implements registration, login, refresh rotation and logout for
// the user and vendor principal namespaces.
type Service interface {
	RegisterUser(ctx context.Context, input RegisterUserInput) (*Session, error)
	RegisterVendor(ctx context.Context, input RegisterVendorInput) (*Session, error)
	Login(ctx context.Context, input LoginInput) (*Session, error)
	Refresh(ctx context.Context, rawToken string) (*TokenPair, error)
	Logout(ctx context.Context, rawToken string) error
	LogoutAll(ctx context.Context, principalID uuid.UUID, principal enums.Principal) error
	GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*VendorDTO, error)
}

type service struct {
	store      Store
	limiter    RateLimiter
	jwt        config.JWTConfig
	password   config.PasswordConfig
	rateLimits config.AuthRateLimitConfig
	now        func() time.Time
}

// NewService builds the auth service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth store is required")
	case params.JWT.Secret == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jwt secret is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:      params.Store,
		limiter:    params.Limiter,
		jwt:        params.JWT,
		password:   params.Password,
		rateLimits: params.RateLimits,
		now:        now,
	}, nil
}

func (s *service) RegisterUser(ctx context.Context, input RegisterUserInput) (*Session, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if err := s.allowRegister(ctx, email, input.ClientIP); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Role:         enums.RoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if dbpkg.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	tokens, err := s.issueTokens(ctx, user.ID, enums.PrincipalUser, &user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Tokens: *tokens, User: toUserDTO(user)}, nil
}

func (s *service) RegisterVendor(ctx context.Context, input RegisterVendorInput) (*Session, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.StoreName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if err := s.allowRegister(ctx, email, input.ClientIP); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	vendor := &models.Vendor{
		Email:        email,
		PasswordHash: hash,
		StoreName:    strings.TrimSpace(input.StoreName),
		Phone:        input.Phone,
		Address:      input.Address,
		IsActive:     true,
	}
	if err := s.store.CreateVendor(ctx, vendor); err != nil {
		if dbpkg.IsUniqueViolation(err, "vendors_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}

	tokens, err := s.issueTokens(ctx, vendor.ID, enums.PrincipalVendor, nil)
	if err != nil {
		return nil, err
	}
	return &Session{Tokens: *tokens, Vendor: toVendorDTO(vendor)}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if !input.Principal.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid principal")
	}
	if err := s.allowLogin(ctx, email, input.ClientIP); err != nil {
		return nil, err
	}

	now := s.now()
	switch input.Principal {
	case enums.PrincipalUser:
		user, err := s.store.FindUserByEmail(ctx, email)
		if err != nil {
			return nil, loginFailure(err)
		}
		if err := verifyCredentials(input.Password, user.PasswordHash, user.IsActive); err != nil {
			return nil, err
		}
		tokens, err := s.issueTokens(ctx, user.ID, enums.PrincipalUser, &user.Role)
		if err != nil {
			return nil, err
		}
		_ = s.store.TouchUserLogin(ctx, user.ID, now)
		user.LastLoginAt = &now
		return &Session{Tokens: *tokens, User: toUserDTO(user)}, nil

	default:
		vendor, err := s.store.FindVendorByEmail(ctx, email)
		if err != nil {
			return nil, loginFailure(err)
		}
		if err := verifyCredentials(input.Password, vendor.PasswordHash, vendor.IsActive); err != nil {
			return nil, err
		}
		tokens, err := s.issueTokens(ctx, vendor.ID, enums.PrincipalVendor, nil)
		if err != nil {
			return nil, err
		}
		_ = s.store.TouchVendorLogin(ctx, vendor.ID, now)
		vendor.LastLoginAt = &now
		return &Session{Tokens: *tokens, Vendor: toVendorDTO(vendor)}, nil
	}
}

func (s *service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token is required")
	}

	record, err := s.store.FindRefreshTokenByHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refresh token")
	}

	now := s.now()
	if record.RevokedAt != nil {
		// A revoked token being replayed means the opaque value leaked.
		// Kill every live session for the account.
		if _, err := s.store.RevokeAllForPrincipal(ctx, record.PrincipalID, record.PrincipalType, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token has been revoked")
	}
	if !record.Usable(now) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token has expired")
	}

	var role *enums.Role
	switch record.PrincipalType {
	case enums.PrincipalUser:
		user, err := s.store.FindUserByID(ctx, record.PrincipalID)
		if err != nil || !user.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is no longer active")
		}
		role = &user.Role
	case enums.PrincipalVendor:
		vendor, err := s.store.FindVendorByID(ctx, record.PrincipalID)
		if err != nil || !vendor.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is no longer active")
		}
	}

	if err := s.store.RevokeRefreshToken(ctx, record.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate refresh token")
	}
	return s.issueTokens(ctx, record.PrincipalID, record.PrincipalType, role)
}

func (s *service) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}
	record, err := s.store.FindRefreshTokenByHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // logging out an unknown token is a no-op
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refresh token")
	}
	if err := s.store.RevokeRefreshToken(ctx, record.ID, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke refresh token")
	}
	return nil
}

func (s *service) LogoutAll(ctx context.Context, principalID uuid.UUID, principal enums.Principal) error {
	if !principal.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid principal")
	}
	if _, err := s.store.RevokeAllForPrincipal(ctx, principalID, principal, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	return nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return toUserDTO(user), nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*VendorDTO, error) {
	vendor, err := s.store.FindVendorByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return toVendorDTO(vendor), nil
}

// issueTokens mints a JWT and a fresh opaque refresh token for the account.
func (s *service) issueTokens(ctx context.Context, subjectID uuid.UUID, principal enums.Principal, role *enums.Role) (*TokenPair, error) {
	now := s.now()
	access, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		SubjectID: subjectID,
		Principal: principal,
		Role:      role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	raw, err := generateOpaqueToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate refresh token")
	}
	record := &models.RefreshToken{
		TokenHash:     hashToken(raw),
		PrincipalID:   subjectID,
		PrincipalType: principal,
		ExpiresAt:     now.Add(s.jwt.RefreshTokenTTL()),
	}
	if err := s.store.CreateRefreshToken(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
	}, nil
}

func (s *service) allowLogin(ctx context.Context, email, ip string) error {
	return s.allow(ctx,
		ratePair{"login:email:" + email, int64(s.rateLimits.LoginEmailLimit), s.rateLimits.LoginWindow},
		ratePair{"login:ip:" + ip, int64(s.rateLimits.LoginIPLimit), s.rateLimits.LoginWindow},
	)
}

func (s *service) allowRegister(ctx context.Context, email, ip string) error {
	return s.allow(ctx,
		ratePair{"register:email:" + email, int64(s.rateLimits.RegisterEmailLimit), s.rateLimits.RegisterWindow},
		ratePair{"register:ip:" + ip, int64(s.rateLimits.RegisterIPLimit), s.rateLimits.RegisterWindow},
	)
}

type ratePair struct {
	scope  string
	limit  int64
	window time.Duration
}

func (s *service) allow(ctx context.Context, pairs ...ratePair) error {
	if s.limiter == nil {
		return nil
	}
	for _, p := range pairs {
		if p.limit <= 0 {
			continue
		}
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, p.scope, p.limit, p.window)
		if err != nil {
			// Redis being down must not lock everyone out.
			continue
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later")
		}
	}
	return nil
}

func verifyCredentials(password, encodedHash string, active bool) error {
	ok, err := security.VerifyPassword(password, encodedHash)
	if err != nil || !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}
	if !active {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	return nil
}

func loginFailure(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func generateOpaqueToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func toUserDTO(user *models.User) *UserDTO {
	return &UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func toVendorDTO(vendor *models.Vendor) *VendorDTO {
	return &VendorDTO{
		ID:          vendor.ID,
		Email:       vendor.Email,
		StoreName:   vendor.StoreName,
		Phone:       vendor.Phone,
		Address:     vendor.Address,
		LogoURL:     vendor.LogoURL,
		LastLoginAt: vendor.LastLoginAt,
		CreatedAt:   vendor.CreatedAt,
	}
}
