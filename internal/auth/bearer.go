// Package auth guards the HTTP MCP endpoint with a static bearer token
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerTokenAuth checks requests against a single shared token
type BearerTokenAuth struct {
	token []byte
}

// NewBearerTokenAuth creates a new Bearer token authenticator
func NewBearerTokenAuth(token string) *BearerTokenAuth {
	return &BearerTokenAuth{token: []byte(token)}
}

// IsAuthorized validates the Bearer token from the Authorization header
func (b *BearerTokenAuth) IsAuthorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return false
	}

	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" || len(b.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), b.token) == 1
}

// SetUnauthorizedHeaders sets the WWW-Authenticate challenge
func (b *BearerTokenAuth) SetUnauthorizedHeaders(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="mealbasket"`)
}

// Middleware rejects unauthorized requests with 401 before they reach next
func (b *BearerTokenAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !b.IsAuthorized(r) {
			b.SetUnauthorizedHeaders(w)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
