package mission

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/logger"
)

type CreateMissionUseCase struct {
	missionRepo repository.MissionRepository
	qr          repository.QRIssuer
	events      *Events
}

func NewCreateMissionUseCase(missionRepo repository.MissionRepository, qr repository.QRIssuer, events *Events) *CreateMissionUseCase {
	return &CreateMissionUseCase{missionRepo: missionRepo, qr: qr, events: events}
}

// Execute создаёт миссию в статусе pending. Цена считается по размеру посылки;
// ошибка выпуска QR только логируется.
func (uc *CreateMissionUseCase) Execute(ctx context.Context, clientID uuid.UUID, draft entity.MissionDraft) (*entity.Mission, error) {
	m, err := entity.NewMission(clientID, draft)
	if err != nil {
		return nil, err
	}

	if err := uc.missionRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	if uc.qr != nil {
		uc.attachQR(ctx, m)
	}

	uc.events.Transitioned(ctx, m, uuid.Nil, "")
	return m, nil
}

func (uc *CreateMissionUseCase) attachQR(ctx context.Context, m *entity.Mission) {
	_, image, err := uc.qr.Issue(m.ID)
	if err == nil {
		err = uc.missionRepo.SetQRCode(ctx, m.ID, image)
	}
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"mission_id": m.ID,
			"error":      err.Error(),
		}).Warn("mission: не удалось выпустить QR-код")
		return
	}
	m.SetQRCode(image)
}
