package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/http/response"
)

type contextKey string

const authUserKey contextKey = "auth_user"

type AuthMiddleware struct {
	tokenService outbound.TokenService
}

func NewAuthMiddleware(tokenService outbound.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := m.claimsFromRequest(r)
		if claims == nil {
			response.Unauthorized(w, "Valid bearer token required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authUserKey, claims)))
	}
}

// OptionalAuth attaches caller claims when a valid bearer token is present
// and otherwise lets the request through anonymously. Anonymous callers are
// served but their actions are not audited.
func (m *AuthMiddleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims := m.claimsFromRequest(r); claims != nil {
			r = r.WithContext(context.WithValue(r.Context(), authUserKey, claims))
		}
		next.ServeHTTP(w, r)
	}
}

func (m *AuthMiddleware) claimsFromRequest(r *http.Request) *outbound.TokenClaims {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil
	}
	claims, err := m.tokenService.ValidateAccessToken(parts[1])
	if err != nil {
		return nil
	}
	return claims
}

// GetUserClaims returns the authenticated caller's claims, or nil for
// anonymous requests.
func GetUserClaims(ctx context.Context) *outbound.TokenClaims {
	claims, _ := ctx.Value(authUserKey).(*outbound.TokenClaims)
	return claims
}
