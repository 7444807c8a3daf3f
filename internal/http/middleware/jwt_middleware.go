package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/slotwise/schedulr/internal/http/response"
	"github.com/slotwise/schedulr/pkg/auth"
	"github.com/slotwise/schedulr/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireHost authenticates the acting host from a Bearer token and puts the
// claims on the request context. Core services still take the host ID as an
// explicit parameter; this only establishes who is calling.
func RequireHost(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "missing or invalid authorization header")
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				response.Unauthorized(w, "invalid authorization token")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.HostIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
