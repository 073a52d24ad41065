package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/repository/common"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrDisputeStale: статус спора изменился между чтением и записью.
	ErrDisputeStale = errors.New("dispute status changed")
)

const disputeColumns = `id, mission_id, raised_by, reason, status, resolution, resolved_by, resolved_at, created_at`

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (mission_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, d.MissionID, d.RaisedBy, d.Reason, d.Status).
		Scan(&d.ID, &d.CreatedAt); err != nil {
		if common.IsForeignKeyViolation(err) {
			return ErrMissionRefMissing
		}
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

// ErrMissionRefMissing: спор ссылается на несуществующую миссию.
var ErrMissionRefMissing = errors.New("mission not found")

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &d, nil
}

// List возвращает споры, опционально отфильтрованные по статусу.
func (r *DisputeRepository) List(ctx context.Context, status string) ([]models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	disputes := []models.Dispute{}
	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list %w", err)
	}
	return disputes, nil
}

// UpdateStatus переводит спор из статуса from; при расхождении вернёт ErrDisputeStale.
func (r *DisputeRepository) UpdateStatus(ctx context.Context, d *models.Dispute, from string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = $3, resolution = $4, resolved_by = $5, resolved_at = $6
		WHERE id = $1 AND status = $2
	`, d.ID, from, d.Status, d.Resolution, d.ResolvedBy, d.ResolvedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: update status %w", err)
	}
	return expectAffected(res, ErrDisputeStale)
}
