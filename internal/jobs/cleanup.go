package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/logger"
)

type StaleTokenStore interface {
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob удаляет просроченные токены верификации и refresh-сессии.
type CleanupJob struct {
	tokens   StaleTokenStore
	sessions SessionStore
	now      func() time.Time
	log      *logrus.Entry
}

func NewCleanupJob(tokens StaleTokenStore, sessions SessionStore) *CleanupJob {
	return &CleanupJob{
		tokens:   tokens,
		sessions: sessions,
		now:      time.Now,
		log:      logger.Component("cleanup_job"),
	}
}

func (j *CleanupJob) Name() string { return "cleanup" }

func (j *CleanupJob) Run(ctx context.Context) error {
	now := j.now()

	tokens, err := j.tokens.DeleteStale(ctx, now)
	if err != nil {
		return fmt.Errorf("delete stale tokens: %w", err)
	}
	sessions, err := j.sessions.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	if tokens > 0 || sessions > 0 {
		j.log.WithFields(logrus.Fields{"tokens": tokens, "sessions": sessions}).Info("очистка завершена")
	}
	return nil
}
