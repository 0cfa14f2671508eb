package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/scope"
	"github.com/gateflow/gateflow/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	Type      string // "admin" or "api_key"
	AdminID   int64
	KeyID     int64
	KeyPrefix string
	Scopes    []string
	RateLimit int // per-minute budget, api_key only
	IsAdmin   bool
}

// Authenticate returns an HTTP middleware that validates the request's
// authentication credentials. It supports two methods:
//
//  1. API key via the configured header (for service consumers)
//  2. JWT Bearer token via the Authorization header (for admin sessions)
//
// On success, a Principal is attached to the request context. On failure,
// a 401 JSON error response is returned.
func Authenticate(authSvc *service.AuthService, apiKeyHeader string) func(http.Handler) http.Handler {
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			// Try API key first
			apiKey := r.Header.Get(apiKeyHeader)
			if apiKey != "" {
				p, err := authSvc.ValidateAPIKey(r.Context(), apiKey)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthorized, authFailureMessage(err))
					return
				}
				principal = &Principal{
					Type:      "api_key",
					AdminID:   p.AdminID,
					KeyID:     p.KeyID,
					KeyPrefix: p.KeyPrefix,
					Scopes:    p.Scopes,
					RateLimit: p.RateLimitPerMinute,
				}
			}

			// Try JWT Bearer token
			if principal == nil {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					token := strings.TrimPrefix(authHeader, "Bearer ")
					p, err := authSvc.ValidateJWT(r.Context(), token)
					if err != nil {
						writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthorized, "Invalid token")
						return
					}
					principal = &Principal{
						Type:    "admin",
						AdminID: p.AdminID,
						IsAdmin: true,
					}
				}
			}

			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthorized,
					"Authentication required. Provide "+apiKeyHeader+" header or Bearer token.")
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authFailureMessage(err error) string {
	switch err {
	case service.ErrKeyRevoked:
		return "API key revoked"
	case service.ErrKeyExpired:
		return "API key expired"
	default:
		return "Invalid API key"
	}
}

// RequireSession returns an HTTP middleware that restricts a route to admin
// session tokens. API keys are rejected even with the wildcard scope; this
// keeps credential management off the key surface, so a leaked key cannot
// mint or revoke keys.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsAdmin {
				writeAuthError(w, http.StatusForbidden, model.CodeForbidden,
					"Admin session required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScopes returns an HTTP middleware that enforces API key scopes.
// Admin sessions carry every scope implicitly; API keys must cover all the
// required scopes or the wildcard.
func RequireScopes(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, model.CodeUnauthorized,
					"Authentication required")
				return
			}
			if !principal.IsAdmin && !scope.Allowed(principal.Scopes, required...) {
				writeAuthError(w, http.StatusForbidden, model.CodeForbidden,
					"API key is missing the required scope: "+strings.Join(required, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
