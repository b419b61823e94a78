package server

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/homedeskhq/homedesk/pkg/auth"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

// Authenticator enforces the endpoint's dual authentication: the shared
// service secret (when configured) and a valid bearer token. A missing or
// invalid bearer token is rejected regardless of the secret's outcome.
type Authenticator struct {
	serviceSecret string
	tokens        *auth.TokenManager
}

func NewAuthenticator(serviceSecret string, tokens *auth.TokenManager) *Authenticator {
	return &Authenticator{serviceSecret: serviceSecret, tokens: tokens}
}

// Middleware wraps a handler with the dual auth check.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.serviceSecret != "" {
			got := r.Header.Get("x-service-secret")
			if subtle.ConstantTimeCompare([]byte(got), []byte(a.serviceSecret)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid service secret")
				return
			}
		}

		token, err := auth.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}

		claims, err := a.tokens.ValidateBearer(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims of the current request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return claims, ok
}
