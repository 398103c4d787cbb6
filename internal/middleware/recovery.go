package middleware

import (
	"net/http"

	"candlestand-api/pkg/apierror"
	"candlestand-api/pkg/response"

	"go.uber.org/zap"
)

// NewRecovery returns a middleware that turns panics into 500 responses.
func NewRecovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("path", r.URL.Path),
						requestIDField(r),
						zap.Stack("stack"))

					response.Error(w, apierror.InternalError("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
