package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Farylve/TEST/internal/repository"
	"github.com/Farylve/TEST/pkg/database"
	apperrors "github.com/Farylve/TEST/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	db database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

var _ repository.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

const insertRefreshToken = `
	INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
	VALUES ($1, $2, $3, $4)`

// Create stores a new refresh token digest.
func (r *RefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (err error) {
	ctx, end := database.TraceQuery(ctx, "refresh_tokens.create", insertRefreshToken)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, insertRefreshToken, userID, tokenHash, expiresAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert refresh token: %w", database.Classify(err))
	}
	return nil
}

// Rotate swaps a live token for a new one atomically. The DELETE takes the
// row lock, so of two concurrent rotations of the same token only the first
// sees a returned row; the second finds nothing and is rejected.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) (err error) {
	ctx, end := database.TraceQuery(ctx, "refresh_tokens.rotate", "DELETE FROM refresh_tokens ... RETURNING id")
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
			DELETE FROM refresh_tokens
			WHERE token_hash = $1 AND user_id = $2 AND expires_at > NOW()
			RETURNING id`, oldHash, userID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.Unauthorized("invalid or expired refresh token")
			}
			return fmt.Errorf("delete rotated refresh token: %w", database.Classify(err))
		}

		if _, err := tx.Exec(ctx, insertRefreshToken, userID, newHash, expiresAt, time.Now().UTC()); err != nil {
			return fmt.Errorf("insert rotated refresh token: %w", database.Classify(err))
		}
		return nil
	})
}

// Delete removes a single token owned by userID.
func (r *RefreshTokenRepository) Delete(ctx context.Context, userID, tokenHash string) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = $1 AND user_id = $2`

	if _, err := r.db.Exec(ctx, query, tokenHash, userID); err != nil {
		return fmt.Errorf("delete refresh token: %w", database.Classify(err))
	}
	return nil
}

// DeleteByUserID removes every token owned by userID and reports how many went.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	ct, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens by user: %w", database.Classify(err))
	}
	return ct.RowsAffected(), nil
}
