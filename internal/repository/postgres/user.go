package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/internal/repository"
	"github.com/Farylve/TEST/pkg/database"
	apperrors "github.com/Farylve/TEST/pkg/errors"
)

const userEmailKey = "users_email_live_key"

const userColumns = `id, email, password_hash, first_name, last_name, role, is_email_verified, is_active,
	verification_token_hash, verification_token_expire, reset_token_hash, reset_token_expire,
	last_login_at, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Create inserts a new user. The partial unique index on email makes
// concurrent registrations of the same address fail with Conflict.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_email_verified, is_active,
			verification_token_hash, verification_token_expire, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	ctx, end := database.TraceQuery(ctx, "users.create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Role,
		u.IsEmailVerified,
		u.IsActive,
		u.VerificationTokenHash,
		u.VerificationTokenExpire,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return apperrors.Conflict("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", database.Classify(err))
	}
	return nil
}

// GetByID retrieves a live user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.scanUser(ctx, "users.get_by_id", query, id)
}

// GetByEmail retrieves a live user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return r.scanUser(ctx, "users.get_by_email", query, email)
}

// GetByVerificationToken retrieves the user owning an unexpired verification digest.
func (r *UserRepository) GetByVerificationToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE verification_token_hash = $1 AND verification_token_expire > NOW() AND deleted_at IS NULL`
	return r.scanUser(ctx, "users.get_by_verification_token", query, tokenHash)
}

// GetByResetToken retrieves the user owning an unexpired reset digest.
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE reset_token_hash = $1 AND reset_token_expire > NOW() AND deleted_at IS NULL`
	return r.scanUser(ctx, "users.get_by_reset_token", query, tokenHash)
}

// Update persists the mutable columns of a live user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4, role = $5,
		    is_email_verified = $6, is_active = $7,
		    verification_token_hash = $8, verification_token_expire = $9,
		    reset_token_hash = $10, reset_token_expire = $11, updated_at = $12
		WHERE id = $13 AND deleted_at IS NULL`

	ctx, end := database.TraceQuery(ctx, "users.update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Role,
		u.IsEmailVerified,
		u.IsActive,
		u.VerificationTokenHash,
		u.VerificationTokenExpire,
		u.ResetTokenHash,
		u.ResetTokenExpire,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return apperrors.Conflict("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", database.Classify(err))
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", "id", u.ID)
	}
	return nil
}

// UpdateLastLogin stamps the last successful login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("update last login: %w", database.Classify(err))
	}
	return nil
}

// List returns one page of live users plus the total number of matches.
func (r *UserRepository) List(ctx context.Context, filter repository.UserFilter) (users []domain.User, total int, err error) {
	var (
		conditions = []string{"deleted_at IS NULL"}
		args       []any
		argIndex   = 1
	)

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d ESCAPE '\\' OR last_name ILIKE $%d ESCAPE '\\' OR email ILIKE $%d ESCAPE '\\')",
			argIndex, argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
		argIndex++
	}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, *filter.Role)
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM users
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "users.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", database.Classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		dest := append(userScanDest(&u), &total)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", database.Classify(err))
	}

	if users == nil {
		users = []domain.User{}
	}
	return users, total, nil
}

// SoftDelete flags the user deleted, archives its identity and drops its
// refresh tokens in one transaction. The email stays intact; the partial
// unique index frees it for a new registration.
func (r *UserRepository) SoftDelete(ctx context.Context, id, deletedBy string) (err error) {
	ctx, end := database.TraceQuery(ctx, "users.soft_delete", "UPDATE users SET deleted_at")
	defer func() { end(err) }()

	var archivedBy *string
	if deletedBy != "" {
		archivedBy = &deletedBy
	}

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var email, firstName, lastName string
		err := tx.QueryRow(ctx, `
			UPDATE users
			SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW(),
			    verification_token_hash = NULL, verification_token_expire = NULL,
			    reset_token_hash = NULL, reset_token_expire = NULL
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING email, first_name, last_name`, id).Scan(&email, &firstName, &lastName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("user", "id", id)
			}
			return fmt.Errorf("mark user deleted: %w", database.Classify(err))
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO archived_users (user_id, email, first_name, last_name, archived_by)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO NOTHING`,
			id, email, firstName, lastName, archivedBy,
		); err != nil {
			return fmt.Errorf("archive user: %w", database.Classify(err))
		}

		if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user refresh tokens: %w", database.Classify(err))
		}
		return nil
	})
}

func (r *UserRepository) scanUser(ctx context.Context, op, query string, args ...any) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var user domain.User
	if err := r.db.QueryRow(ctx, query, args...).Scan(userScanDest(&user)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", database.Classify(err))
	}
	return &user, nil
}

func userScanDest(u *domain.User) []any {
	return []any{
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.IsEmailVerified,
		&u.IsActive,
		&u.VerificationTokenHash,
		&u.VerificationTokenExpire,
		&u.ResetTokenHash,
		&u.ResetTokenExpire,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns free text into an ILIKE substring pattern with the
// wildcard characters escaped.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
