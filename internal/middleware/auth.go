package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tripyplan/tripy-auth/internal/crypto"
	"github.com/tripyplan/tripy-auth/internal/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

// Verifier checks a bearer token.
type Verifier interface {
	VerifySession(token string) (*crypto.Claims, error)
}

// TokenFromRequest returns the token from the named header, falling back to
// "Authorization: Bearer <token>".
func TokenFromRequest(r *http.Request, header string) string {
	if token := strings.TrimSpace(r.Header.Get(header)); token != "" {
		return token
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireSession rejects requests without a valid token and stores the
// token's claims in the request context.
func RequireSession(v Verifier, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.VerifySession(TokenFromRequest(r, header))
			if err != nil {
				logger.FromRequest(r).Debug().Str("reason", crypto.StatusOf(err).String()).Msg("session rejected")
				writeJSONError(w, http.StatusUnauthorized, "invalid auth")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by RequireSession.
func ClaimsFromContext(ctx context.Context) (*crypto.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*crypto.Claims)
	return claims, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
