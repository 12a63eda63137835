package middleware

import (
	"log/slog"
	"net/http"

	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/httputil"
)

// RequireStore short-circuits with 503 while available reports false, so
// handlers never issue queries against a store known to be down.
func RequireStore(available func() bool, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !available() {
				w.Header().Set("Retry-After", "5")
				httputil.WriteError(w, r, apperrors.Unavailable(nil), l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
