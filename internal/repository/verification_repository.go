package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/repository/common"
)

// ErrVerificationTokenInvalid: токен не найден, уже использован или истёк.
var ErrVerificationTokenInvalid = errors.New("verification token invalid")

type VerificationRepository struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) CreateToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.VerificationToken, error) {
	var vt models.VerificationToken
	err := r.db.GetContext(ctx, &vt, `
		INSERT INTO verification_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token, expires_at, used, created_at
	`, userID, token, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("verification repository: create %w", err)
	}
	return &vt, nil
}

// Consume помечает токен использованным и подтверждает пользователя в одной транзакции.
func (r *VerificationRepository) Consume(ctx context.Context, token string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &userID, `
			UPDATE verification_tokens SET used = TRUE
			WHERE token = $1 AND used = FALSE AND expires_at > $2
			RETURNING user_id
		`, token, now)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVerificationTokenInvalid
		}
		if err != nil {
			return fmt.Errorf("verification repository: consume %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("verification repository: verify user %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// DeleteStale удаляет использованные и истёкшие токены.
func (r *VerificationRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE used = TRUE OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("verification repository: delete stale %w", err)
	}
	return res.RowsAffected()
}
