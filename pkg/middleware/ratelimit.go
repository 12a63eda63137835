package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/httputil"
)

// RateLimitByIP allows each client IP limit failed requests per window.
// Every request is counted up front and the hit is returned once the handler
// answers with a status below 400, so clients that keep succeeding are never
// throttled. A nil counter keeps the counts in process memory.
func RateLimitByIP(limit int, window time.Duration, counter httprate.LimitCounter, l *slog.Logger) func(http.Handler) http.Handler {
	opts := []httprate.Option{
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteError(w, r, apperrors.RateLimited("too many requests, please try again later"), l)
		}),
		httprate.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			httputil.WriteError(w, r, apperrors.Internal(err), l)
		}),
	}
	if counter != nil {
		opts = append(opts, httprate.WithLimitCounter(counter))
	}
	limiter := httprate.NewRateLimiter(limit, window, opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := httprate.KeyByIP(r)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Internal(err), l)
				return
			}

			current := time.Now().UTC().Truncate(window)
			if limiter.RespondOnLimit(w, r, key) {
				return
			}

			rw := wrap(w)
			next.ServeHTTP(rw, r)

			if rw.statusCode >= http.StatusBadRequest {
				return
			}
			// A hit that has already rolled into the previous window decays on its own.
			if !time.Now().UTC().Truncate(window).Equal(current) {
				return
			}
			if err := limiter.Counter().IncrementBy(key, current, -1); err != nil {
				l.WarnContext(r.Context(), "rate limit refund failed", slog.String("error", err.Error()))
			}
		})
	}
}
