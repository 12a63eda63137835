package repository

import (
	"context"
	"time"

	"github.com/Farylve/TEST/internal/domain"
)

// UserFilter narrows an admin user listing. Nil fields are ignored.
type UserFilter struct {
	Search   *string
	Role     *string
	IsActive *bool
	Page     int
	Limit    int
}

// UserRepository defines the interface for user persistence operations.
// Soft-deleted users are invisible to every lookup.
type UserRepository interface {
	// Create inserts a new user. A live user with the same email yields a Conflict.
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByVerificationToken and GetByResetToken match a token digest whose
	// expiry is still in the future.
	GetByVerificationToken(ctx context.Context, tokenHash string) (*domain.User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)

	// Update persists every mutable column of the user.
	Update(ctx context.Context, user *domain.User) error

	// UpdateLastLogin stamps last_login_at.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)

	// SoftDelete marks the user deleted and archives its identity.
	SoftDelete(ctx context.Context, id, deletedBy string) error
}

// RefreshTokenRepository defines the interface for refresh token persistence.
type RefreshTokenRepository interface {
	// Create stores a new refresh token digest.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// Rotate deletes the live token matching oldHash and userID and stores
	// newHash in the same transaction. It returns an Unauthorized error when
	// no live token matched, including when a concurrent rotation won.
	Rotate(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error

	// Delete removes one token owned by userID. Missing tokens are not an error.
	Delete(ctx context.Context, userID, tokenHash string) error

	// DeleteByUserID removes every token owned by userID.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// PostFilter holds the optional filters of a public post listing.
type PostFilter struct {
	Category *string
	Tag      *string
	Search   *string
	Page     int
	Limit    int
}

// PostRepository defines the read side of the post store. Only published
// posts are ever returned.
type PostRepository interface {
	List(ctx context.Context, filter PostFilter) ([]domain.Post, int, error)
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Post, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
}
