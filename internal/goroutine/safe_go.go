package goroutine

import (
	"context"
	"runtime/debug"
	"time"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// Runner: то, что нужно сервисам для запуска побочных эффектов.
type Runner interface {
	Detached(parent context.Context, name string, timeout time.Duration, fn func(context.Context) error)
}

// RecoveryHandler запускает фоновые задачи так, что их паника не роняет процесс.
type RecoveryHandler struct {
	logger Logger
}

func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// Detached запускает fn в отдельной горутине. Отмена parent на fn не действует,
// вместо неё работает собственный timeout. Ошибка fn только логируется.
func (rh *RecoveryHandler) Detached(parent context.Context, name string, timeout time.Duration, fn func(context.Context) error) {
	base := context.WithoutCancel(parent)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("паника в фоновой задаче %s: %v\n%s", name, r, debug.Stack())
			}
		}()

		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			rh.logger.Errorf("фоновая задача %s завершилась с ошибкой: %v", name, err)
		}
	}()
}

// Inline выполняет задачи синхронно. Используется в тестах, чтобы не ждать горутины.
type Inline struct{}

func (Inline) Detached(parent context.Context, _ string, timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()
	_ = fn(ctx)
}
