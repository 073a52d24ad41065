package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/models"
)

type PendingTransactions interface {
	PendingSummary(ctx context.Context, olderThan time.Time) (*models.PendingSummary, error)
}

// ReconciliationJob сообщает о переводах партнёрам, зависших в pending.
// Повторную отправку выполняет оператор вручную.
type ReconciliationJob struct {
	repo  PendingTransactions
	grace time.Duration
	now   func() time.Time
	log   *logrus.Entry
}

func NewReconciliationJob(repo PendingTransactions, grace time.Duration) *ReconciliationJob {
	return &ReconciliationJob{
		repo:  repo,
		grace: grace,
		now:   time.Now,
		log:   logger.Component("reconciliation_job"),
	}
}

func (j *ReconciliationJob) Name() string { return "reconciliation" }

func (j *ReconciliationJob) Run(ctx context.Context) error {
	summary, err := j.repo.PendingSummary(ctx, j.now().Add(-j.grace))
	if err != nil {
		return fmt.Errorf("pending summary: %w", err)
	}
	if summary.Count == 0 {
		return nil
	}

	fields := logrus.Fields{"count": summary.Count, "total": summary.Total}
	if summary.OldestSince != nil {
		fields["oldest"] = summary.OldestSince.UTC().Format(time.RFC3339)
	}
	j.log.WithFields(fields).Warn("есть незавершённые выплаты партнёрам")
	return nil
}
