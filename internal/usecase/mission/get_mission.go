package mission

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// NearbyLimit: максимум миссий в выдаче поиска рядом.
const NearbyLimit = 50

type GetMissionUseCase struct {
	missionRepo repository.MissionRepository
}

func NewGetMissionUseCase(missionRepo repository.MissionRepository) *GetMissionUseCase {
	return &GetMissionUseCase{missionRepo: missionRepo}
}

func (uc *GetMissionUseCase) Execute(ctx context.Context, missionID uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
	m, err := uc.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if !m.CanView(actor) {
		return nil, apperror.Forbidden("нет доступа к миссии")
	}
	return m, nil
}

// ListQuery: параметры списка миссий. Near задаётся партнёром для поиска рядом.
type ListQuery struct {
	Near    *valueobject.Point
	RadiusM int
}

type ListMissionsUseCase struct {
	missionRepo repository.MissionRepository
}

func NewListMissionsUseCase(missionRepo repository.MissionRepository) *ListMissionsUseCase {
	return &ListMissionsUseCase{missionRepo: missionRepo}
}

// Execute: клиент видит свои миссии; партнёр с координатами видит свободные миссии рядом,
// без координат видит назначенные ему.
func (uc *ListMissionsUseCase) Execute(ctx context.Context, actor entity.Actor, q ListQuery) ([]*entity.Mission, error) {
	switch actor.Role {
	case valueobject.RoleClient:
		return uc.missionRepo.FindByClientID(ctx, actor.ID)
	case valueobject.RolePartner:
		if q.Near != nil {
			return uc.missionRepo.FindNearbyPending(ctx, *q.Near, valueobject.ClampRadius(q.RadiusM), NearbyLimit)
		}
		return uc.missionRepo.FindByPartnerID(ctx, actor.ID)
	}
	return nil, apperror.Forbidden("список миссий доступен клиентам и партнёрам")
}
