// Package middleware holds the HTTP middleware chain: session auth,
// request logging, and CORS.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/solspore/gaming/internal/domain"
)

// TokenVerifier validates a session token and returns the caller identity.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type contextKey string

const identityKey contextKey = "identity"

// sessionCookie carries the session token for browser clients that cannot
// set an Authorization header.
const sessionCookie = "solspore_session"

// Session returns middleware that extracts a session token, verifies it,
// and stores the resulting identity in the request context. Requests
// without a token pass through anonymously; handlers that require auth use
// IdentityFrom or the Require* wrappers.
func Session(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired session token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the authenticated identity stored by Session, if any.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// RequireAuth wraps a handler so it only runs for authenticated callers.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next(w, r)
	}
}

// RequireAdmin wraps a handler so it only runs for admin callers. An
// anonymous caller gets 401; an authenticated non-admin gets 403.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !identity.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next(w, r)
	}
}

// extractToken looks for a token in the Authorization header (Bearer
// scheme), falling back to the session cookie. The header wins when both
// are present.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + kind + `","message":"` + msg + `"}`))
}
