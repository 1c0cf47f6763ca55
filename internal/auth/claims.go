// Package auth validates the session tokens the identity provider issues
// for the dashboard user. Tokens are RS256 JWTs verified against the
// provider's JWKS endpoint.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing validated session claims.
const ClaimsKey contextKey = "claims"

// Claims is the session token payload. The subject carries the user id;
// SessionID is the provider's session claim.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
	Email     string `json:"email,omitempty"`
}

// withClaims stores validated claims on the context.
func withClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims retrieves session claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// UserID returns the authenticated user id from context, or "" when the
// request carries no validated session.
func UserID(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}
