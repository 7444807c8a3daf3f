package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/slotwise/schedulr/internal/http/response"
)

// RateLimitByIP throttles unauthenticated endpoints per client IP. The allow
// func is backed by redis in production and a stub in tests.
func RateLimitByIP(allow func(ctx context.Context, key string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !allow(r.Context(), ip) {
				response.RateLimit(w, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
