package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"packshop/internal/models"
)

type PasswordResetRepository interface {
	// Replace drops every reset token of token.UserID and stores token in
	// its place, atomically.
	Replace(ctx context.Context, token *models.PasswordResetToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, *models.User, error)
	// Consume marks the token used if it still is unused and stores the new
	// password hash for its owner in the same transaction.
	Consume(ctx context.Context, tokenID string, userID string, passwordHash string, usedAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	db *sqlx.DB
}

func NewPasswordResetRepository(db *sqlx.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Replace(ctx context.Context, token *models.PasswordResetToken) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Locking the owner serialises concurrent requests for the same user.
	var lockedID string
	if err = tx.QueryRowxContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, token.UserID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrUserNotFound
			return err
		}
		return fmt.Errorf("lock user: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, token.UserID); err != nil {
		return fmt.Errorf("delete reset tokens: %w", err)
	}

	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING created_at
	`
	if err = tx.QueryRowxContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.CreatedAt); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	token.Used = false
	token.UsedAt = nil

	return tx.Commit()
}

func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, *models.User, error) {
	query := `
		SELECT t.id, t.user_id, t.token_hash, t.expires_at, t.used, t.used_at, t.created_at,
		       u.id, u.email, u.name, u.password_hash, u.role, u.must_change_password, u.created_at, u.updated_at
		FROM password_reset_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
	`

	var t models.PasswordResetToken
	var u models.User
	var usedAt sql.NullTime
	err := r.db.QueryRowxContext(ctx, query, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Used, &usedAt, &t.CreatedAt,
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.MustChangePassword, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrResetTokenNotFound
		}
		return nil, nil, err
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return &t, &u, nil
}

func (r *passwordResetRepository) Consume(ctx context.Context, tokenID string, userID string, passwordHash string, usedAt time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = TRUE, used_at = $2 WHERE id = $1 AND used = FALSE`,
		tokenID, usedAt,
	)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrResetTokenUsed
		return err
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, must_change_password = FALSE, updated_at = NOW() WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return err
	}
	if n == 0 {
		err = ErrUserNotFound
		return err
	}

	return tx.Commit()
}

func (r *passwordResetRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
	return err
}
