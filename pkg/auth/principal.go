package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidCredential indicates that a presented credential could not be
// verified: bad signature, expired token, or missing required claims.
var ErrInvalidCredential = errors.New("invalid credential")

// Principal is the authenticated identity attached to a request, before any
// tenant scoping happens. It is derived from a verified credential, lives for
// a single request, and is never persisted.
type Principal struct {
	UserID string
	Email  string

	// TenantClaim is the tenant ID embedded at credential-issuance time.
	// Empty for operator principals and users with no bound tenant. Tenant
	// resolution re-derives the effective tenant per request and cross-checks
	// this claim; the claim alone is never trusted for scoping.
	TenantClaim string

	// SuperAdminClaim records whether the issuing side considered this
	// principal an operator. Like TenantClaim, it is cross-checked against
	// the email domain during tenant resolution.
	SuperAdminClaim bool
}

// Claims is the JWT claims layout used by issued credentials.
type Claims struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	TenantID   string `json:"tenantId,omitempty"`
	SuperAdmin bool   `json:"isSuperAdmin,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed credentials.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager with the given HMAC secret and
// token lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a signed credential for the given identity. The tenant and
// super-admin claims are derived once here, at issuance time.
func (tm *TokenManager) Issue(userID, email, tenantID string, superAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Email:      email,
		TenantID:   tenantID,
		SuperAdmin: superAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies a credential and derives the request Principal from its
// claims. Pure: no lookups, no side effects.
func (tm *TokenManager) Resolve(credential string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidCredential)
	}

	if claims.UserID == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidCredential)
	}

	return &Principal{
		UserID:          claims.UserID,
		Email:           claims.Email,
		TenantClaim:     claims.TenantID,
		SuperAdminClaim: claims.SuperAdmin,
	}, nil
}
