package mission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/logger"
)

const transferTimeout = 15 * time.Second

type DeliverMissionUseCase struct {
	missionRepo repository.MissionRepository
	accounts    repository.PaymentAccounts
	transfers   repository.PaymentTransfers
	events      *Events
	now         func() time.Time
}

func NewDeliverMissionUseCase(
	missionRepo repository.MissionRepository,
	accounts repository.PaymentAccounts,
	transfers repository.PaymentTransfers,
	events *Events,
) *DeliverMissionUseCase {
	return &DeliverMissionUseCase{
		missionRepo: missionRepo,
		accounts:    accounts,
		transfers:   transfers,
		events:      events,
		now:         time.Now,
	}
}

// DeliveryResult: доставленная миссия и итог расчёта с партнёром.
type DeliveryResult struct {
	Mission    *entity.Mission
	Settlement *entity.Settlement
}

// Execute подтверждает доставку. После успешного перехода операция всегда
// завершается успехом: сбой перевода оставляет выплату в pending.
func (uc *DeliverMissionUseCase) Execute(ctx context.Context, missionID, partnerID uuid.UUID) (*DeliveryResult, error) {
	m, err := uc.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	if err := m.Deliver(partnerID, uc.now()); err != nil {
		return nil, err
	}

	settlement := entity.NewSettlement(m)
	if err := uc.missionRepo.Deliver(ctx, m, settlement); err != nil {
		if errors.Is(err, repository.ErrStaleMission) {
			return nil, errStale
		}
		return nil, err
	}

	uc.settle(ctx, m, settlement)
	uc.events.Transitioned(ctx, m, m.ClientID, NotificationDelivered)

	return &DeliveryResult{Mission: m, Settlement: settlement}, nil
}

// settle переводит деньги партнёру, если у него есть платёжный аккаунт,
// иначе закрывает выплату как ручную.
func (uc *DeliverMissionUseCase) settle(ctx context.Context, m *entity.Mission, s *entity.Settlement) {
	log := logger.Log.WithFields(map[string]interface{}{
		"mission_id":    m.ID,
		"partner_id":    s.PartnerID,
		"settlement_id": s.ID,
	})

	account, err := uc.accounts.PaymentAccountID(ctx, s.PartnerID)
	if err != nil {
		log.WithError(err).Warn("mission: не удалось получить платёжный аккаунт, выплата остаётся pending")
		return
	}

	reference := ""
	if account != "" {
		if uc.transfers == nil {
			log.Warn("mission: платёжный шлюз не настроен, выплата остаётся pending")
			return
		}
		tctx, cancel := context.WithTimeout(ctx, transferTimeout)
		reference, err = uc.transfers.CreateTransfer(tctx, repository.TransferRequest{
			AmountCents: s.Amount.Cents(),
			Destination: account,
			MissionID:   m.ID.String(),
		})
		cancel()
		if err != nil {
			uc.events.observer.TransferFailed()
			log.WithError(err).Error("mission: перевод партнёру не выполнен, выплата остаётся pending")
			return
		}
	}

	s.Complete(reference)
	if err := uc.missionRepo.UpdateSettlement(ctx, s); err != nil {
		s.Status = valueobject.TransactionPending
		s.PaymentReference = nil
		// перевод мог уже пройти: id нужен для ручной сверки
		log.WithError(err).WithField("transfer_id", reference).
			Error("mission: не удалось сохранить статус выплаты")
	}
}
