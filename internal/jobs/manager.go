package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/logger"
)

// Job: периодическая задача обслуживания.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Manager запускает задачи по расписанию cron (с секундами).
type Manager struct {
	cron    *cron.Cron
	timeout time.Duration
	log     *logrus.Entry
}

func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = time.Minute
	}
	log := logger.Component("jobs")
	cl := cronLogger{log: log}
	return &Manager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		timeout: timeout,
		log:     log,
	}
}

// cronLogger пишет события планировщика и паники задач в logrus.
// Info у cron срабатывает на каждом тике, поэтому уходит в debug.
type cronLogger struct {
	log *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

// Schedule регистрирует задачу. Ошибка возвращается для неверного выражения.
func (m *Manager) Schedule(spec string, job Job) error {
	_, err := m.cron.AddFunc(spec, func() { m.runOnce(job) })
	if err != nil {
		return fmt.Errorf("jobs: schedule %s: %w", job.Name(), err)
	}
	m.log.WithFields(logrus.Fields{"job": job.Name(), "schedule": spec}).Info("задача зарегистрирована")
	return nil
}

func (m *Manager) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	started := time.Now()
	entry := m.log.WithField("job", job.Name())
	if err := job.Run(ctx); err != nil {
		entry.WithError(err).Error("задача завершилась с ошибкой")
		return
	}
	entry.WithField("elapsed", time.Since(started).String()).Debug("задача выполнена")
}

// Run блокируется до отмены ctx, затем ждёт завершения выполняющихся задач.
func (m *Manager) Run(ctx context.Context) error {
	m.cron.Start()
	m.log.Info("планировщик запущен")

	<-ctx.Done()
	stopped := m.cron.Stop()
	<-stopped.Done()
	m.log.Info("планировщик остановлен")
	return nil
}
