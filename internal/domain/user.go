package domain

import (
	"strings"
	"time"
)

// User represents a registered account. Token fields hold SHA-256 digests;
// the raw values only ever leave the process inside a notification.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Role            string     `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsActive        bool       `json:"isActive"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	VerificationTokenHash   *string    `json:"-"`
	VerificationTokenExpire *time.Time `json:"-"`
	ResetTokenHash          *string    `json:"-"`
	ResetTokenExpire        *time.Time `json:"-"`
	DeletedAt               *time.Time `json:"-"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetVerificationToken stores a verification digest, replacing any previous one.
func (u *User) SetVerificationToken(hash string, expires time.Time) {
	u.VerificationTokenHash = &hash
	u.VerificationTokenExpire = &expires
}

// ClearVerificationToken drops the verification digest.
func (u *User) ClearVerificationToken() {
	u.VerificationTokenHash = nil
	u.VerificationTokenExpire = nil
}

// SetResetToken stores a password reset digest, replacing any previous one.
func (u *User) SetResetToken(hash string, expires time.Time) {
	u.ResetTokenHash = &hash
	u.ResetTokenExpire = &expires
}

// ClearResetToken drops the password reset digest.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = nil
	u.ResetTokenExpire = nil
}

// NormalizeEmail trims and lower-cases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RefreshToken is a persisted refresh token digest for one session.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	User *User `json:"user"`
	TokenPair
}
