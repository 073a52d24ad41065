package mission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/goroutine"
)

// Типы уведомлений жизненного цикла.
const (
	NotificationAccepted  = "mission_accepted"
	NotificationCollected = "mission_collected"
	NotificationInTransit = "mission_in_transit"
	NotificationDelivered = "delivery_completed"
	NotificationCancelled = "mission_cancelled"
)

const notifyTimeout = 10 * time.Second

// Observer получает сигналы для метрик.
type Observer interface {
	MissionTransitioned(to valueobject.MissionStatus)
	TransferFailed()
}

type noopObserver struct{}

func (noopObserver) MissionTransitioned(valueobject.MissionStatus) {}
func (noopObserver) TransferFailed()                               {}

// Events рассылает уведомления о переходах миссии в фоне. Ошибки рассылки
// логируются раннером и не влияют на результат перехода.
type Events struct {
	notifier repository.Notifier
	runner   goroutine.Runner
	observer Observer
}

func NewEvents(notifier repository.Notifier, runner goroutine.Runner, observer Observer) *Events {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Events{notifier: notifier, runner: runner, observer: observer}
}

// Transitioned фиксирует переход и, если получатель задан, отправляет ему уведомление.
func (e *Events) Transitioned(ctx context.Context, m *entity.Mission, recipient uuid.UUID, kind string) {
	e.observer.MissionTransitioned(m.Status)
	if recipient == uuid.Nil || e.notifier == nil {
		return
	}
	msg := notificationText(kind, m)
	e.runner.Detached(ctx, "notify:"+kind, notifyTimeout, func(ctx context.Context) error {
		return e.notifier.Notify(ctx, recipient, kind, msg)
	})
}

func notificationText(kind string, m *entity.Mission) string {
	switch kind {
	case NotificationAccepted:
		return fmt.Sprintf("Вашу посылку «%s» взял в работу партнёр.", m.PackageTitle)
	case NotificationCollected:
		return fmt.Sprintf("Посылка «%s» забрана и скоро отправится в путь.", m.PackageTitle)
	case NotificationInTransit:
		return fmt.Sprintf("Посылка «%s» в пути.", m.PackageTitle)
	case NotificationDelivered:
		return fmt.Sprintf("Посылка «%s» успешно доставлена.", m.PackageTitle)
	case NotificationCancelled:
		return fmt.Sprintf("Миссия «%s» отменена.", m.PackageTitle)
	}
	return m.PackageTitle
}
