package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const (
	tokenHeader              = "Authorization"
	tokenPrefix              = "Bearer "
	userClaimsKey contextKey = "user_claims"
)

// RequireBearer rejects requests without a valid access token and stores the
// claims on the request context.
func RequireBearer(signer *Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(tokenHeader)
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			if !strings.HasPrefix(header, tokenPrefix) {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := signer.ValidateToken(strings.TrimPrefix(header, tokenPrefix))
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaims retrieves the claims stored by RequireBearer.
func GetUserClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*Claims)
	return claims, ok
}

// GetUserID retrieves the authenticated user id.
func GetUserID(ctx context.Context) (int64, bool) {
	claims, ok := GetUserClaims(ctx)
	if !ok {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
