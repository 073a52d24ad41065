package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
)

// ErrStaleMission: условное обновление не затронуло ни одной строки,
// статус миссии изменился с момента чтения.
var ErrStaleMission = errors.New("mission status changed concurrently")

type MissionRepository interface {
	Create(ctx context.Context, m *entity.Mission) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Mission, error)
	FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*entity.Mission, error)
	FindByPartnerID(ctx context.Context, partnerID uuid.UUID) ([]*entity.Mission, error)
	FindNearbyPending(ctx context.Context, center valueobject.Point, radiusM, limit int) ([]*entity.Mission, error)
	List(ctx context.Context, filter MissionFilter) ([]*entity.Mission, error)
	SetQRCode(ctx context.Context, id uuid.UUID, code string) error

	// Transition сохраняет статус, партнёра и время завершения, только если
	// в строке всё ещё статус from. Иначе возвращает ErrStaleMission.
	Transition(ctx context.Context, m *entity.Mission, from valueobject.MissionStatus) error

	// Deliver в одной транзакции выполняет Transition из in_transit и создаёт выплату.
	Deliver(ctx context.Context, m *entity.Mission, s *entity.Settlement) error
	UpdateSettlement(ctx context.Context, s *entity.Settlement) error
}

type MissionFilter struct {
	Status string
	Limit  int
}
