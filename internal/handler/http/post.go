package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/service"
	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/httputil"
	"github.com/Farylve/TEST/pkg/pagination"
	"github.com/Farylve/TEST/pkg/validator"
)

const maxSearchLength = 200

// PostService is the read-only post API the post handler drives.
type PostService interface {
	ListPosts(ctx context.Context, input service.ListPostsInput) (*service.PostList, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
}

// PostHandler handles HTTP requests for the public post endpoints.
type PostHandler struct {
	service PostService
	logger  *slog.Logger
}

// NewPostHandler creates a new post HTTP handler.
func NewPostHandler(svc PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{service: svc, logger: logger}
}

// ListPosts handles GET /api/posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	input, err := parseListPosts(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	list, err := h.service.ListPosts(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, list)
}

// parseListPosts validates the listing query before the store is touched.
func parseListPosts(r *http.Request) (service.ListPostsInput, error) {
	params, err := pagination.FromRequest(r)
	if err != nil {
		return service.ListPostsInput{}, err
	}
	input := service.ListPostsInput{Params: params}

	q := r.URL.Query()
	for _, f := range []struct {
		name string
		dst  **string
	}{
		{"category", &input.Category},
		{"tag", &input.Tag},
	} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		if !validator.IsSlug(v) {
			return input, apperrors.InvalidInput(f.name + " must contain only lower-case letters, digits and hyphens")
		}
		*f.dst = &v
	}

	if s := strings.TrimSpace(q.Get("search")); s != "" {
		if utf8.RuneCountInString(s) > maxSearchLength {
			return input, apperrors.InvalidInput("search must be at most 200 characters")
		}
		input.Search = &s
	}
	return input, nil
}

// GetPostByID handles GET /api/posts/id/{id}
func (h *PostHandler) GetPostByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPostByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, post)
}

// GetPostBySlug handles GET /api/posts/slug/{slug}
func (h *PostHandler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !validator.IsSlug(slug) {
		httputil.WriteError(w, r, apperrors.NotFound("post", "slug", slug), h.logger)
		return
	}

	post, err := h.service.GetPostBySlug(r.Context(), slug)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, post)
}

// ListCategories handles GET /api/categories
func (h *PostHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// ListTags handles GET /api/tags
func (h *PostHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, tags)
}
