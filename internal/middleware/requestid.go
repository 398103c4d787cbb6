package middleware

import (
	"context"
	"net/http"

	"candlestand-api/pkg/uid"

	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// NewRequestID returns a middleware that tags every request with an id,
// echoed back in X-Request-ID. A caller id is reused only if it is a UUID.
func NewRequestID(log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !uid.IsValid(id) {
				if id != "" {
					log.Debug("replacing malformed request id", zap.String("got", id))
				}
				id = uid.New()
			}
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFrom returns the id set by NewRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDField(r *http.Request) zap.Field {
	return zap.String("request_id", RequestIDFrom(r.Context()))
}
