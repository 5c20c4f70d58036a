package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// clockSkew tolerates drift between the api instances and board clients
// that mint or check tokens.
const clockSkew = 30 * time.Second

var (
	ErrSecretRequired = errors.New("jwt secret is required")
	ErrIssuerRequired = errors.New("jwt issuer is required")
	ErrMissingUser    = errors.New("token missing user id")
	ErrMissingOrg     = errors.New("token missing organization id")
)

// Validate runs after the registered claims pass. A board principal needs
// both ids and a known role.
func (c *AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return ErrMissingUser
	case c.OrganizationID == uuid.Nil:
		return ErrMissingOrg
	case !c.Role.IsValid():
		return fmt.Errorf("invalid member role %q", c.Role)
	}
	return nil
}

// MintAccessToken signs a token for payload that expires after the
// configured number of minutes.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := &AccessTokenClaims{
		UserID:         payload.UserID,
		OrganizationID: payload.OrganizationID,
		Role:           payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then the board
// claims through Validate.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkSigningConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return ErrSecretRequired
	}
	if cfg.Issuer == "" {
		return ErrIssuerRequired
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
