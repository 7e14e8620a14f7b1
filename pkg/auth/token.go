package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
)

var (
	ErrSigningKeyMissing = errors.New("auth: jwt secret not configured")
	ErrInvalidClaims     = errors.New("auth: invalid token claims")
)

var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs a back-office token for operator. The subject and the
// operator claim always agree.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("auth: token lifetime must be positive, got %d minutes", cfg.ExpirationMinutes)
	}
	operator := strings.TrimSpace(payload.Operator)
	if operator == "" || !payload.Role.IsValid() {
		return "", fmt.Errorf("%w: operator %q role %q", ErrInvalidClaims, operator, payload.Role)
	}
	id := strings.TrimSpace(payload.JTI)
	if id == "" {
		id = uuid.NewString()
	}

	lifetime := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := AccessTokenClaims{
		Operator: operator,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    cfg.Issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry and returns the
// operator claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	claims := new(AccessTokenClaims)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if claims.Operator == "" || !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: operator %q role %q", ErrInvalidClaims, claims.Operator, claims.Role)
	}
	return claims, nil
}

func checkConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return ErrSigningKeyMissing
	}
	if cfg.Issuer == "" {
		return errors.New("auth: jwt issuer not configured")
	}
	return nil
}
