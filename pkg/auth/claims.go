package auth

import (
	"github.com/angelmondragon/workboard-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.MemberRole
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID         uuid.UUID        `json:"user_id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	Role           enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller every work board operation is
// scoped to.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.MemberRole
}

// Principal returns the caller identity carried by the claims.
func (c *AccessTokenClaims) Principal() Principal {
	return Principal{
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		Role:           c.Role,
	}
}
