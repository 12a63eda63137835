package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/service"
	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/httputil"
	"github.com/Farylve/TEST/pkg/pagination"
)

// UserService is the profile and administration API the user handler drives.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, input service.UpdateProfileInput) (*domain.User, error)
	DeleteAccount(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, input service.ListUsersInput) (*service.UserList, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, actorID, id string, input service.UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}

// UserHandler handles HTTP requests for profile and admin user endpoints.
type UserHandler struct {
	service UserService
	cookie  CookieConfig
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc UserService, cookie CookieConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, cookie: cookie, logger: logger}
}

// UpdateProfileRequest is the JSON request body for profile updates.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=50"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
}

func (r UpdateProfileRequest) input() service.UpdateProfileInput {
	return service.UpdateProfileInput{FirstName: r.FirstName, LastName: r.LastName, Email: r.Email}
}

// UpdateUserRequest is the JSON request body for admin user updates.
type UpdateUserRequest struct {
	UpdateProfileRequest
	Role     *string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	IsActive *bool   `json:"isActive"`
}

// GetProfile handles GET /api/users/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.GetProfile(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateProfileRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), p.UserID, req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// DeleteAccount handles DELETE /api/users/account
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), p.UserID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearTokenCookie(w, h.cookie)
	httputil.WriteMessage(w, http.StatusOK, "account deleted successfully")
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := service.ListUsersInput{Params: params}
	q := r.URL.Query()
	if s := strings.TrimSpace(q.Get("search")); s != "" {
		if utf8.RuneCountInString(s) > maxSearchLength {
			httputil.WriteError(w, r, apperrors.InvalidInput("search must be at most 200 characters"), h.logger)
			return
		}
		input.Search = &s
	}
	if role := q.Get("role"); role != "" {
		input.Role = &role
	}
	if raw := q.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("isActive must be true or false"), h.logger)
			return
		}
		input.IsActive = &active
	}

	list, err := h.service.ListUsers(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, list)
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// UpdateUser handles PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), p.UserID, id.String(), service.UpdateUserInput{
		UpdateProfileInput: req.input(),
		Role:               req.Role,
		IsActive:           req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), p.UserID, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "user deleted successfully")
}
