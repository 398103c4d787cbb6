package middleware

import (
	"crypto/subtle"
	"net/http"

	"candlestand-api/pkg/apierror"
	"candlestand-api/pkg/response"
)

// LoginKeyHeader carries the admin login key.
const LoginKeyHeader = "X-Login-Key"

// NewLoginKeyMiddleware rejects requests whose X-Login-Key header does not
// match key. An empty key leaves the routes open.
func NewLoginKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(LoginKeyHeader)
			if got == "" {
				response.Error(w, apierror.Unauthorized("X-Login-Key header required"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				response.Error(w, apierror.Unauthorized("invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
