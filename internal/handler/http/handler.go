package http

import (
	"errors"
	"net/http"
	"time"

	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/middleware"
	"github.com/Farylve/TEST/pkg/validator"
)

// CookieConfig controls the access token cookie set on sign-in.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// decode reads and validates a JSON body. Malformed JSON becomes a 400;
// field-level failures keep their per-field messages.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	err := validator.DecodeAndValidate(w, r, dst)
	if err == nil {
		return nil
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return err
	}
	return apperrors.InvalidInput("invalid request body")
}

func setTokenCookie(w http.ResponseWriter, cfg CookieConfig, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// principal returns the caller set by the Authenticate middleware.
func principal(r *http.Request) (*middleware.Principal, error) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return p, nil
}
