package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Farylve/TEST/internal/auth"
	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/event"
	"github.com/Farylve/TEST/internal/notify"
	"github.com/Farylve/TEST/internal/repository"
	apperrors "github.com/Farylve/TEST/pkg/errors"
	"github.com/Farylve/TEST/pkg/middleware"
	"github.com/Farylve/TEST/pkg/validator"
)

const (
	defaultBcryptCost      = 12
	verificationTokenTTL   = 24 * time.Hour
	resetTokenTTL          = 10 * time.Minute
	msgInvalidCredentials  = "invalid credentials"
	msgInvalidRefreshToken = "invalid or expired refresh token"
	msgWeakPassword        = "password must be at least 8 characters and contain an upper-case letter, a lower-case letter, a digit and a symbol"
)

// AuthConfig holds the tunables of the credential and session flows.
type AuthConfig struct {
	// ClientURL is the frontend origin used to build email links.
	ClientURL  string
	BcryptCost int
}

// AuthService owns registration, login, token rotation and the email
// verification and password reset flows.
type AuthService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	jwt      *auth.JWTManager
	notifier notify.Sender
	events   event.Publisher
	metrics  *AuthMetrics
	cfg      AuthConfig
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	jwt *auth.JWTManager,
	notifier notify.Sender,
	events event.Publisher,
	metrics *AuthMetrics,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	if events == nil {
		events = event.Noop{}
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		jwt:      jwt,
		notifier: notifier,
		events:   events,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

var _ middleware.Authenticator = (*AuthService)(nil)

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account, mails a verification link and signs the user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (result *domain.AuthResult, err error) {
	defer func() { s.metrics.observe("register", err) }()

	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.InvalidInput("first and last name are required")
	}
	if !validator.StrongPassword(input.Password) {
		return nil, apperrors.InvalidInput(msgWeakPassword)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	token, digest, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.SetVerificationToken(digest, now.Add(verificationTokenTTL))

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	// Registration succeeds even when the mail cannot be delivered; the
	// user can ask for a new link later.
	if err := s.notifier.Send(ctx, notify.Message{
		Kind:      notify.KindVerification,
		To:        user.Email,
		FirstName: user.FirstName,
		Link:      s.link("verify-email", token),
		ExpiresIn: "24 hours",
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.events.UserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	return &domain.AuthResult{User: user, TokenPair: *pair}, nil
}

// Login authenticates by email and password. Unknown email, deactivated
// account and wrong password all produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *domain.AuthResult, err error) {
	defer func() { s.metrics.observe("login", err) }()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get user by email: %w", err)
		}
		// Spend the same bcrypt time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLoginAt = &now

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return &domain.AuthResult{User: user, TokenPair: *pair}, nil
}

// RefreshToken rotates a refresh token. The presented token is consumed; a
// second presentation of the same token fails.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (pair *domain.TokenPair, err error) {
	defer func() { s.metrics.observe("refresh", err) }()

	if refreshToken == "" {
		return nil, apperrors.Unauthorized(msgInvalidRefreshToken)
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidRefreshToken)
	}

	user, err := s.activeUser(ctx, claims.UserID, msgInvalidRefreshToken)
	if err != nil {
		return nil, err
	}

	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	next, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokens.Rotate(ctx, user.ID, auth.HashToken(refreshToken), auth.HashToken(next), expiresAt); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			s.logger.WarnContext(ctx, "refresh token reuse or expiry detected",
				slog.String("user_id", user.ID),
			)
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))

	return &domain.TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Logout revokes one refresh token of the authenticated user. The access
// token stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, userID, auth.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// ForgotPassword stores a 10 minute reset token and mails it. When the mail
// cannot be sent the token is cleared again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.observe("forgot_password", err) }()

	email = domain.NormalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", "email", email)
		}
		return fmt.Errorf("get user by email: %w", err)
	}

	token, digest, err := auth.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	user.SetResetToken(digest, s.now().UTC().Add(resetTokenTTL))
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	sendErr := s.notifier.Send(ctx, notify.Message{
		Kind:      notify.KindPasswordReset,
		To:        user.Email,
		FirstName: user.FirstName,
		Link:      s.link("reset-password", token),
		ExpiresIn: "10 minutes",
	})
	if sendErr == nil {
		s.logger.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
		return nil
	}

	s.logger.ErrorContext(ctx, "failed to send password reset email",
		slog.String("user_id", user.ID),
		slog.String("error", sendErr.Error()),
	)
	user.ClearResetToken()
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back reset token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return &apperrors.AppError{
		Code:    "EMAIL_NOT_SENT",
		Message: "email could not be sent",
		Status:  http.StatusInternalServerError,
		Err:     sendErr,
	}
}

// ResetPassword sets a new password from a live reset token and revokes
// every refresh token of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.metrics.observe("reset_password", err) }()

	if token == "" {
		return apperrors.InvalidInput("invalid or expired reset token")
	}
	if !validator.StrongPassword(newPassword) {
		return apperrors.InvalidInput(msgWeakPassword)
	}

	user, err := s.users.GetByResetToken(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("invalid or expired reset token")
		}
		return fmt.Errorf("get user by reset token: %w", err)
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ClearResetToken()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.tokens.DeleteByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	if err := s.events.PasswordReset(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}

// VerifyEmail consumes a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { s.metrics.observe("verify_email", err) }()

	if token == "" {
		return apperrors.InvalidInput("invalid or expired verification token")
	}

	user, err := s.users.GetByVerificationToken(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("invalid or expired verification token")
		}
		return fmt.Errorf("get user by verification token: %w", err)
	}

	user.IsEmailVerified = true
	user.ClearVerificationToken()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	if err := s.notifier.Send(ctx, notify.Message{
		Kind:      notify.KindWelcome,
		To:        user.Email,
		FirstName: user.FirstName,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to send welcome email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.events.UserVerified(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.email_verified event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "email verified", slog.String("user_id", user.ID))
	return nil
}

// ResendVerification issues a fresh verification token, replacing the old one.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user.IsEmailVerified {
		return apperrors.InvalidInput("email is already verified")
	}

	token, digest, err := auth.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	user.SetVerificationToken(digest, s.now().UTC().Add(verificationTokenTTL))
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if err := s.notifier.Send(ctx, notify.Message{
		Kind:      notify.KindVerification,
		To:        user.Email,
		FirstName: user.FirstName,
		Link:      s.link("verify-email", token),
		ExpiresIn: "24 hours",
	}); err != nil {
		return apperrors.Internal(fmt.Errorf("send verification email: %w", err))
	}
	return nil
}

// ChangePassword replaces the password of an authenticated user and signs
// out every session.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if !validator.StrongPassword(newPassword) {
		return apperrors.InvalidInput(msgWeakPassword)
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.InvalidInput("current password is incorrect")
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if _, err := s.tokens.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	return nil
}

// Authenticate validates an access token and re-checks that its user still
// exists and is active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*middleware.Principal, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	user, err := s.activeUser(ctx, claims.UserID, "invalid or expired token")
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// activeUser loads a user and maps absence or deactivation to Unauthorized.
// Store failures pass through untouched.
func (s *AuthService) activeUser(ctx context.Context, userID, message string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(message)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(message)
	}
	return user, nil
}

// issueTokens mints an access/refresh pair and persists the refresh digest.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokens.Create(ctx, user.ID, auth.HashToken(refresh), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), s.cfg.BcryptCost)
	})
	return s.dummyHash
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.cfg.ClientURL, "/") + "/" + path + "/" + token
}
