package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ecorelais/delivery-backend/internal/models"
)

// ReportRepository собирает агрегаты для админской статистики.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("report repository: count users %w", err)
	}
	return n, nil
}

// CountUsersBefore: пользователи, зарегистрированные до начала окна.
func (r *ReportRepository) CountUsersBefore(ctx context.Context, before time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE created_at < $1`, before); err != nil {
		return 0, fmt.Errorf("report repository: count users before %w", err)
	}
	return n, nil
}

// CountActiveMissions: миссии не в терминальном статусе.
func (r *ReportRepository) CountActiveMissions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM missions WHERE status NOT IN ('delivered', 'cancelled')`); err != nil {
		return 0, fmt.Errorf("report repository: count active missions %w", err)
	}
	return n, nil
}

// Revenue: сумма комиссий доставленных миссий.
func (r *ReportRepository) Revenue(ctx context.Context) (float64, error) {
	var v float64
	if err := r.db.GetContext(ctx, &v,
		`SELECT COALESCE(SUM(commission), 0) FROM missions WHERE status = 'delivered'`); err != nil {
		return 0, fmt.Errorf("report repository: revenue %w", err)
	}
	return v, nil
}

// UsersByMonth: число регистраций по месяцам (UTC) начиная с since.
func (r *ReportRepository) UsersByMonth(ctx context.Context, since time.Time) ([]models.MonthlyValue, error) {
	rows := []models.MonthlyValue{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT TO_CHAR(DATE_TRUNC('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month, COUNT(*)::float8 AS value
		FROM users
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("report repository: users by month %w", err)
	}
	return rows, nil
}

// RevenueByMonth: комиссия доставленных миссий по месяцам завершения (UTC).
func (r *ReportRepository) RevenueByMonth(ctx context.Context, since time.Time) ([]models.MonthlyValue, error) {
	rows := []models.MonthlyValue{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT TO_CHAR(DATE_TRUNC('month', completed_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month, COALESCE(SUM(commission), 0)::float8 AS value
		FROM missions
		WHERE status = 'delivered' AND completed_at >= $1
		GROUP BY 1
		ORDER BY 1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("report repository: revenue by month %w", err)
	}
	return rows, nil
}
