package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/krishanu7/subway-trader-backend/pkg/httputil"
)

type ctxKey struct{}

// WithUsername returns a context carrying an authenticated username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKey{}, username)
}

// UsernameFromContext returns the authenticated username, or "" when the
// request carried no valid token.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(ctxKey{}).(string)
	return username
}

// Verifier resolves a bearer token to a username.
type Verifier interface {
	Verify(token string) (string, error)
}

// Require rejects requests without a valid bearer token.
func Require(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}
			username, err := v.Verify(token)
			if err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}

// Optional attaches the username when a valid token is present and otherwise
// lets the request through untouched.
func Optional(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if username, err := v.Verify(token); err == nil {
					r = r.WithContext(WithUsername(r.Context(), username))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
