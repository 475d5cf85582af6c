package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// RefreshToken is a server-side record of an issued refresh token.
// Only the SHA-256 hash of the opaque token is stored. Revoked and
// expired rows are purged by the cron worker.
type RefreshToken struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TokenHash     string          `gorm:"column:token_hash;type:varchar(64);not null;uniqueIndex:refresh_tokens_token_hash_key"`
	PrincipalID   uuid.UUID       `gorm:"column:principal_id;type:uuid;not null;index:refresh_tokens_principal_idx"`
	PrincipalType enums.Principal `gorm:"column:principal_type;type:varchar(16);not null;index:refresh_tokens_principal_idx"`
	ExpiresAt     time.Time       `gorm:"column:expires_at;not null;index:refresh_tokens_expires_at_idx"`
	RevokedAt     *time.Time      `gorm:"column:revoked_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Usable reports whether the token can still be redeemed at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
