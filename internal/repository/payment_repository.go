package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/repository/common"
)

// PaymentRepository работает с таблицей transactions (выплаты партнёрам).
type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListByPartner возвращает транзакции партнёра, новые сверху.
func (r *PaymentRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, mission_id, partner_id, amount, payment_reference, status, created_at
		FROM transactions
		WHERE partner_id = $1
		ORDER BY created_at DESC
	`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list by partner %w", err)
	}
	return txs, nil
}

// SumCompleted возвращает сумму завершённых транзакций партнёра.
func (r *PaymentRepository) SumCompleted(ctx context.Context, partnerID uuid.UUID) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE partner_id = $1 AND status = 'completed'
	`, partnerID)
	if err != nil {
		return 0, fmt.Errorf("payment repository: sum completed %w", err)
	}
	return total, nil
}

// ClaimPayout помечает все завершённые, но ещё не выплаченные транзакции
// партнёра ссылкой claimRef и возвращает их сумму. Повторный вызов
// не захватит те же строки.
func (r *PaymentRepository) ClaimPayout(ctx context.Context, partnerID uuid.UUID, claimRef string) (float64, error) {
	var total float64
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var amounts []float64
		if err := tx.SelectContext(ctx, &amounts, `
			UPDATE transactions SET payment_reference = $2
			WHERE partner_id = $1 AND status = 'completed' AND payment_reference IS NULL
			RETURNING amount
		`, partnerID, claimRef); err != nil {
			return fmt.Errorf("payment repository: claim payout %w", err)
		}
		for _, a := range amounts {
			total += a
		}
		return nil
	})
	return total, err
}

// FinalizePayout заменяет временную ссылку на идентификатор перевода.
func (r *PaymentRepository) FinalizePayout(ctx context.Context, claimRef, transferID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET payment_reference = $2 WHERE payment_reference = $1`, claimRef, transferID); err != nil {
		return fmt.Errorf("payment repository: finalize payout %w", err)
	}
	return nil
}

// ReleasePayout снимает захват после неудачного перевода.
func (r *PaymentRepository) ReleasePayout(ctx context.Context, claimRef string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET payment_reference = NULL WHERE payment_reference = $1`, claimRef); err != nil {
		return fmt.Errorf("payment repository: release payout %w", err)
	}
	return nil
}

// PendingSummary агрегирует транзакции, застрявшие в pending дольше olderThan.
func (r *PaymentRepository) PendingSummary(ctx context.Context, olderThan time.Time) (*models.PendingSummary, error) {
	var s models.PendingSummary
	err := r.db.GetContext(ctx, &s, `
		SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total, MIN(created_at) AS oldest
		FROM transactions
		WHERE status = 'pending' AND created_at < $1
	`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("payment repository: pending summary %w", err)
	}
	return &s, nil
}
