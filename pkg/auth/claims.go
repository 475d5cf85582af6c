package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	SubjectID uuid.UUID
	Principal enums.Principal
	// Role is only set for user-principal tokens; vendors carry no role.
	Role *enums.Role
	JTI  string
}

// AccessTokenClaims represents the typed JWT issued to clients. The
// principal type is carried in the audience claim so user tokens can
// never be replayed against vendor routes and vice versa.
type AccessTokenClaims struct {
	SubjectID uuid.UUID   `json:"sub_id"`
	Role      *enums.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal derives the principal type from the audience claim.
func (c *AccessTokenClaims) Principal() (enums.Principal, bool) {
	if len(c.Audience) != 1 {
		return "", false
	}
	p, err := enums.ParsePrincipal(c.Audience[0])
	if err != nil {
		return "", false
	}
	return p, true
}
