package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/repository"
	apperrors "github.com/Farylve/TEST/pkg/errors"
)

// memUserStore keeps users in memory so multi-step flows see their own writes.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

var _ repository.UserRepository = (*memUserStore)(nil)

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]domain.User)}
}

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return apperrors.Conflict("user", "email", user.Email)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *memUserStore) find(match func(u domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			c := u
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.ID == id })
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Email == email })
}

func (s *memUserStore) GetByVerificationToken(_ context.Context, tokenHash string) (*domain.User, error) {
	now := time.Now()
	return s.find(func(u domain.User) bool {
		return u.VerificationTokenHash != nil && *u.VerificationTokenHash == tokenHash &&
			u.VerificationTokenExpire != nil && u.VerificationTokenExpire.After(now)
	})
}

func (s *memUserStore) GetByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	now := time.Now()
	return s.find(func(u domain.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpire != nil && u.ResetTokenExpire.After(now)
	})
}

func (s *memUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return apperrors.ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *memUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.LastLoginAt = &at
	s.users[id] = u
	return nil
}

func (s *memUserStore) List(context.Context, repository.UserFilter) ([]domain.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (s *memUserStore) SoftDelete(_ context.Context, id, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type memToken struct {
	userID    string
	expiresAt time.Time
}

// memTokenStore mirrors the rotation contract of the postgres store: the old
// digest is consumed and the new one stored under one lock.
type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memToken
}

var _ repository.RefreshTokenRepository = (*memTokenStore)(nil)

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]memToken)}
}

func (s *memTokenStore) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = memToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *memTokenStore) Rotate(_ context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[oldHash]
	if !ok || t.userID != userID || !t.expiresAt.After(time.Now()) {
		return apperrors.Unauthorized("invalid or expired refresh token")
	}
	delete(s.tokens, oldHash)
	s.tokens[newHash] = memToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *memTokenStore) Delete(_ context.Context, userID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.userID == userID {
		delete(s.tokens, tokenHash)
	}
	return nil
}

func (s *memTokenStore) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, t := range s.tokens {
		if t.userID == userID {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}

func (s *memTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

type flowFixture struct {
	users  *memUserStore
	tokens *memTokenStore
	sender *recordingSender
	svc    *AuthService
}

func newFlowFixture() *flowFixture {
	f := &flowFixture{
		users:  newMemUserStore(),
		tokens: newMemTokenStore(),
		sender: &recordingSender{},
	}
	f.svc = NewAuthService(f.users, f.tokens, newTestJWTManager(), f.sender, nil, nil,
		AuthConfig{ClientURL: testClientURL, BcryptCost: bcrypt.MinCost}, newTestLogger())
	return f
}
