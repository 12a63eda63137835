package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/repository"
	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/pagination"
)

// PostService serves the public, read-only view of published posts.
type PostService struct {
	posts repository.PostRepository
}

// NewPostService creates a new post service.
func NewPostService(posts repository.PostRepository) *PostService {
	return &PostService{posts: posts}
}

// ListPostsInput holds the listing parameters. Filters are combined with AND.
type ListPostsInput struct {
	Params   pagination.Params
	Category *string
	Tag      *string
	Search   *string
}

// PostFilters echoes the filters that were applied.
type PostFilters struct {
	Category *string `json:"category"`
	Tag      *string `json:"tag"`
	Search   *string `json:"search"`
}

// PostList is one page of posts.
type PostList struct {
	Posts      []domain.Post   `json:"posts"`
	Pagination pagination.Info `json:"pagination"`
	Filters    PostFilters     `json:"filters"`
}

// ListPosts returns a page of published posts, newest first.
func (s *PostService) ListPosts(ctx context.Context, input ListPostsInput) (*PostList, error) {
	if err := input.Params.Validate(); err != nil {
		return nil, err
	}

	posts, total, err := s.posts.List(ctx, repository.PostFilter{
		Category: input.Category,
		Tag:      input.Tag,
		Search:   input.Search,
		Page:     input.Params.Page,
		Limit:    input.Params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return &PostList{
		Posts:      posts,
		Pagination: pagination.NewInfo(input.Params, total),
		Filters: PostFilters{
			Category: input.Category,
			Tag:      input.Tag,
			Search:   input.Search,
		},
	}, nil
}

// GetPostByID returns a published post. Malformed ids are reported as not
// found, the same as absent or unpublished posts.
func (s *PostService) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("post", "id", id)
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// GetPostBySlug returns a published post by slug.
func (s *PostService) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListCategories returns every category.
func (s *PostService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.posts.ListCategories(ctx)
}

// ListTags returns every tag.
func (s *PostService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return s.posts.ListTags(ctx)
}
