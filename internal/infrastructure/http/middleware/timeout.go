package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds the request context. Handlers that honour the context, like
// the health database ping, give up once it expires. A non-positive timeout
// disables the bound.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
