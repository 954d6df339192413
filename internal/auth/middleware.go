// Package auth provides authentication middleware and OIDC validation for
// the planning core's optional HTTP front door.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/config"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/corelog"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

// ClaimsContextKey is the context key for storing claims.
const ClaimsContextKey contextKey = "claims"

// Middleware creates authentication middleware for protecting routes.
type Middleware struct {
	validator *OIDCValidator
	enabled   bool
	log       corelog.Logger
}

// NewMiddleware creates a new authentication middleware. log may be nil, in
// which case failures are discarded rather than logged.
func NewMiddleware(cfg *config.OIDCConfig, log corelog.Logger) *Middleware {
	if log == nil {
		log = corelog.Nop()
	}
	// Enable auth only if OIDC client ID is configured
	enabled := cfg.ClientID != ""

	return &Middleware{
		validator: NewOIDCValidator(cfg),
		enabled:   enabled,
		log:       log,
	}
}

// Authenticate returns HTTP middleware that validates the bearer token and,
// when requiredScope is non-empty, rejects tokens that lack it with 403.
// Missing or invalid tokens are rejected with 401. Both checks are skipped
// when authentication is disabled (no OIDC client ID configured).
func (m *Middleware) Authenticate(requiredScope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.enabled {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			if requiredScope != "" && !claims.HasScope(requiredScope) {
				m.log.Warn("token missing required scope", "subject", claims.Subject, "scope", requiredScope)
				http.Error(w, "insufficient scope", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate extracts and validates the bearer token, writing the
// appropriate error response and returning ok=false on any failure.
func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := m.validator.ValidateToken(parts[1])
	if err != nil {
		m.log.Warn("token validation failed", "err", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return nil, false
	}

	m.log.Info("authenticated request", "subject", claims.Subject, "scopes", claims.Scopes)
	return claims, true
}

// OptionalAuth is HTTP middleware that validates tokens if present but allows unauthenticated requests.
// If a valid token is provided, claims are added to the request context.
// If no token is provided, the request proceeds without claims.
// If an invalid token is provided, the request is rejected with 401.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If auth is not enabled, just proceed
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			// No token provided, allow request to proceed without claims
			next.ServeHTTP(w, r)
			return
		}

		// Expect "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]
		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.log.Warn("token validation failed", "err", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		m.log.Info("authenticated request", "subject", claims.Subject, "scopes", claims.Scopes)

		// Add claims to request context
		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims retrieves claims from the request context.
// Returns nil if no claims are present (unauthenticated request with optional auth).
func GetClaims(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
