// Package auth provides JWT-based authentication for dealshield-engine.
// It validates tokens issued by the platform auth service using JWKS.
package auth

import (
	"context"
	"fmt"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// RoleAdmin is the role granting unconditional access to every report.
const RoleAdmin = "admin"

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// CallerFromContext extracts the caller's user id and role from JWT claims
// in context. Returns an error if not authenticated.
func CallerFromContext(ctx context.Context) (string, string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return "", "", fmt.Errorf("authentication required: no claims in context")
	}

	userID := claims.Subject
	if userID == "" {
		return "", "", fmt.Errorf("missing user ID in JWT claims")
	}

	return userID, claims.Role, nil
}
