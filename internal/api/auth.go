package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/platedesk/backoffice/internal/auth/ratelimit"
	"github.com/platedesk/backoffice/internal/auth/token"
)

type contextKey string

const sessionKey contextKey = "session"

// Auth returns middleware that validates bearer session tokens.
// Health endpoints are exempt.
func Auth(validator *token.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			raw := extractToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing session token")
				return
			}

			session, err := validator.Validate(r.Context(), raw)
			if err != nil {
				switch err {
				case token.ErrInvalidToken:
					writeError(w, http.StatusUnauthorized, "invalid session token")
				case token.ErrExpiredToken:
					writeError(w, http.StatusUnauthorized, "expired session token")
				default:
					writeError(w, http.StatusInternalServerError, "authentication error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit returns middleware that enforces a per-session request budget.
// Unauthenticated paths (health) pass through.
func RateLimit(limiter *ratelimit.Limiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(session.ID, perMinute) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext retrieves the validated Session from the request context.
func SessionFromContext(ctx context.Context) *token.Session {
	session, _ := ctx.Value(sessionKey).(*token.Session)
	return session
}

// extractToken reads the session token from the request: Authorization:
// Bearer header first, then the X-Session-Token header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Session-Token")
}

// writeError writes a JSON error response to the client.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
