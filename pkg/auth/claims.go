package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a back-office JWT.
type AccessTokenPayload struct {
	Operator string
	Role     enums.AdminRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to back-office operators.
type AccessTokenClaims struct {
	Operator string          `json:"operator"`
	Role     enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
