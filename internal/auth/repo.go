package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/ashimneupane/bazarly-backend/pkg/db"
	"github.com/ashimneupane/bazarly-backend/pkg/db/models"
	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Repository persists identities and refresh tokens for both principals.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an auth repository on the shared database client.
func NewRepository(client *dbpkg.Client) *Repository {
	return &Repository{db: client.DB()}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateUser inserts a customer account.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindUserByEmail loads a user by email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID loads a user by id.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchUserLogin stamps the user's last login.
func (r *Repository) TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// CreateVendor inserts a seller account.
func (r *Repository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

// FindVendorByEmail loads a vendor by email.
func (r *Repository) FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// FindVendorByID loads a vendor by id.
func (r *Repository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// TouchVendorLogin stamps the vendor's last login.
func (r *Repository) TouchVendorLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// CreateRefreshToken stores a hashed refresh token record.
func (r *Repository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindRefreshTokenByHash loads a refresh token record by its SHA-256 hash.
func (r *Repository) FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeRefreshToken marks a single token revoked. Already revoked rows
// are left untouched so the first revocation timestamp survives.
func (r *Repository) RevokeRefreshToken(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

// RevokeAllForPrincipal revokes every live token for one account, used on logout.
func (r *Repository) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, principal enums.Principal, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("principal_id = ? AND principal_type = ? AND revoked_at IS NULL", principalID, principal).
		Update("revoked_at", at)
	return res.RowsAffected, res.Error
}

// DeleteDeadTokens purges tokens that expired or were revoked before the
// cutoff. Returns the number of rows removed.
func (r *Repository) DeleteDeadTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at < ?", cutoff, cutoff).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
