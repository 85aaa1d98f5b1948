package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. JTI
// doubles as the Redis access-session id; one is generated when empty.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (p Principal) IsAdmin() bool { return p.Role == enums.RoleAdmin }
