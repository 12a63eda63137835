package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Farylve/TEST/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// request_id, user_id, trace_id and span_id. Mount it after RequestLogging
// and Tracing; Authenticate refreshes it once the caller is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
