package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/event"
	"github.com/Farylve/TEST/internal/repository"
	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/pagination"
)

// UserService implements profile management and user administration.
type UserService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	events event.Publisher
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	events event.Publisher,
	logger *slog.Logger,
) *UserService {
	if events == nil {
		events = event.Noop{}
	}
	return &UserService{users: users, tokens: tokens, events: events, logger: logger}
}

// UpdateProfileInput holds the fields a user may change on their own account.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// UpdateUserInput holds the fields an administrator may change.
type UpdateUserInput struct {
	UpdateProfileInput
	Role     *string
	IsActive *bool
}

// ListUsersInput holds the admin listing filters.
type ListUsersInput struct {
	Params   pagination.Params
	Search   *string
	Role     *string
	IsActive *bool
}

// UserList is one page of users.
type UserList struct {
	Users      []domain.User   `json:"users"`
	Pagination pagination.Info `json:"pagination"`
}

// GetProfile returns the caller's own account.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.GetUser(ctx, userID)
}

// UpdateProfile changes name or email. A new email must be verified again.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, input); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", user.ID))
	return user, nil
}

// DeleteAccount soft-deletes the caller's own account.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	return s.softDelete(ctx, userID, userID)
}

// ListUsers returns one page of users matching the filters.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*UserList, error) {
	if err := input.Params.Validate(); err != nil {
		return nil, err
	}
	if input.Role != nil && !domain.IsValidRole(*input.Role) {
		return nil, apperrors.InvalidInput("role must be one of USER, ADMIN")
	}

	users, total, err := s.users.List(ctx, repository.UserFilter{
		Search:   input.Search,
		Role:     input.Role,
		IsActive: input.IsActive,
		Page:     input.Params.Page,
		Limit:    input.Params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &UserList{Users: users, Pagination: pagination.NewInfo(input.Params, total)}, nil
}

// GetUser returns a live user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", "id", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUser applies an administrator's changes. Deactivating a user signs
// out all of its sessions.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, input.UpdateProfileInput); err != nil {
		return nil, err
	}

	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput("role must be one of USER, ADMIN")
		}
		if actorID == id && *input.Role != domain.RoleAdmin {
			return nil, apperrors.InvalidInput("you cannot remove your own admin role")
		}
		user.Role = *input.Role
	}

	deactivated := false
	if input.IsActive != nil {
		if actorID == id && !*input.IsActive {
			return nil, apperrors.InvalidInput("you cannot deactivate your own account")
		}
		deactivated = user.IsActive && !*input.IsActive
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if deactivated {
		if _, err := s.tokens.DeleteByUserID(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "user updated by admin",
		slog.String("user_id", user.ID),
		slog.String("admin_id", actorID),
	)
	return user, nil
}

// DeleteUser soft-deletes another user's account.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperrors.InvalidInput("you cannot delete your own account here")
	}
	return s.softDelete(ctx, id, actorID)
}

func (s *UserService) softDelete(ctx context.Context, id, actorID string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, id, actorID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.events.UserDeleted(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", id),
		slog.String("deleted_by", actorID),
	)
	return nil
}

func applyProfile(user *domain.User, input UpdateProfileInput) error {
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return apperrors.InvalidInput("first name cannot be empty")
		}
		user.FirstName = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return apperrors.InvalidInput("last name cannot be empty")
		}
		user.LastName = name
	}
	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if email == "" {
			return apperrors.InvalidInput("email cannot be empty")
		}
		if email != user.Email {
			user.Email = email
			user.IsEmailVerified = false
		}
	}
	return nil
}
