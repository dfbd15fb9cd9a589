package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateMaxAge bounds how long an OAuth state token stays redeemable.
const StateMaxAge = time.Hour

// stateClaims carries the tenant and post-callback return target through the
// provider's authorization redirect.
type stateClaims struct {
	TenantID  string `json:"tenant_id"`
	ReturnURL string `json:"return_url,omitempty"`
	jwt.RegisteredClaims
}

// StateCodec signs and verifies OAuth state tokens. States older than MaxAge
// are rejected at decode time.
type StateCodec struct {
	Secret []byte
	MaxAge time.Duration
	Clock  func() time.Time
}

// Encode produces a signed state token binding tenantID and returnURL.
func (c *StateCodec) Encode(tenantID, returnURL string) (string, error) {
	if len(c.Secret) == 0 {
		return "", fmt.Errorf("state secret not configured")
	}
	if tenantID == "" {
		return "", fmt.Errorf("tenant id is required")
	}

	now := c.now()
	claims := stateClaims{
		TenantID:  tenantID,
		ReturnURL: returnURL,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge())),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
}

// Decode verifies a state token and returns the tenant and return URL it was
// issued for.
func (c *StateCodec) Decode(state string) (tenantID, returnURL string, err error) {
	if len(c.Secret) == 0 {
		return "", "", fmt.Errorf("state secret not configured")
	}

	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.Secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", fmt.Errorf("invalid state token: %w", err)
	}
	if !parsed.Valid || claims.TenantID == "" {
		return "", "", fmt.Errorf("invalid state token")
	}

	return claims.TenantID, claims.ReturnURL, nil
}

func (c *StateCodec) maxAge() time.Duration {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return StateMaxAge
}

func (c *StateCodec) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}
