package mission

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

var errStale = apperror.State("статус миссии изменился, повторите запрос")

// persist сохраняет переход условным обновлением и переводит гонку в ошибку домена.
func persist(ctx context.Context, repo repository.MissionRepository, m *entity.Mission, from valueobject.MissionStatus, onStale error) error {
	err := repo.Transition(ctx, m, from)
	if errors.Is(err, repository.ErrStaleMission) {
		return onStale
	}
	return err
}

type AcceptMissionUseCase struct {
	missionRepo repository.MissionRepository
	events      *Events
}

func NewAcceptMissionUseCase(missionRepo repository.MissionRepository, events *Events) *AcceptMissionUseCase {
	return &AcceptMissionUseCase{missionRepo: missionRepo, events: events}
}

// Execute назначает партнёра. Из нескольких одновременных запросов выигрывает один,
// остальные получают конфликт.
func (uc *AcceptMissionUseCase) Execute(ctx context.Context, missionID, partnerID uuid.UUID) (*entity.Mission, error) {
	m, err := uc.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	from := m.Status
	if err := m.Accept(partnerID); err != nil {
		return nil, err
	}
	if err := persist(ctx, uc.missionRepo, m, from, apperror.ErrMissionTaken); err != nil {
		return nil, err
	}

	uc.events.Transitioned(ctx, m, m.ClientID, NotificationAccepted)
	return m, nil
}

type CollectMissionUseCase struct {
	missionRepo repository.MissionRepository
	events      *Events
}

func NewCollectMissionUseCase(missionRepo repository.MissionRepository, events *Events) *CollectMissionUseCase {
	return &CollectMissionUseCase{missionRepo: missionRepo, events: events}
}

func (uc *CollectMissionUseCase) Execute(ctx context.Context, missionID, partnerID uuid.UUID, qrPayload string) (*entity.Mission, error) {
	m, err := uc.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	from := m.Status
	if err := m.Collect(partnerID, qrPayload); err != nil {
		return nil, err
	}
	if err := persist(ctx, uc.missionRepo, m, from, errStale); err != nil {
		return nil, err
	}

	uc.events.Transitioned(ctx, m, m.ClientID, NotificationCollected)
	return m, nil
}

type UpdateMissionStatusUseCase struct {
	missionRepo repository.MissionRepository
	events      *Events
}

func NewUpdateMissionStatusUseCase(missionRepo repository.MissionRepository, events *Events) *UpdateMissionStatusUseCase {
	return &UpdateMissionStatusUseCase{missionRepo: missionRepo, events: events}
}

// Execute поддерживает только переход collected → in_transit.
func (uc *UpdateMissionStatusUseCase) Execute(ctx context.Context, missionID, partnerID uuid.UUID, status string) (*entity.Mission, error) {
	if valueobject.MissionStatus(status) != valueobject.MissionStatusInTransit {
		return nil, apperror.Validation("разрешён только статус in_transit")
	}

	m, err := uc.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	from := m.Status
	if err := m.StartTransit(partnerID, status); err != nil {
		return nil, err
	}
	if err := persist(ctx, uc.missionRepo, m, from, errStale); err != nil {
		return nil, err
	}

	uc.events.Transitioned(ctx, m, m.ClientID, NotificationInTransit)
	return m, nil
}

type CancelMissionUseCase struct {
	missionRepo repository.MissionRepository
	events      *Events
}

func NewCancelMissionUseCase(missionRepo repository.MissionRepository, events *Events) *CancelMissionUseCase {
	return &CancelMissionUseCase{missionRepo: missionRepo, events: events}
}

// Execute отменяет миссию и уведомляет другую сторону.
func (uc *CancelMissionUseCase) Execute(ctx context.Context, missionID uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
	m, err := uc.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	from := m.Status
	recipient, err := m.Cancel(actor)
	if err != nil {
		return nil, err
	}
	if err := persist(ctx, uc.missionRepo, m, from, errStale); err != nil {
		return nil, err
	}

	uc.events.Transitioned(ctx, m, recipient, NotificationCancelled)
	return m, nil
}
