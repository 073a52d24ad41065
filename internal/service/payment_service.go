package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	domainrepo "github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/infrastructure/payment"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// PayoutMissionRef: значение mission_id в метаданных перевода при выплате баланса.
const PayoutMissionRef = "payout"

// PaymentRepository: транзакции выплат партнёрам.
type PaymentRepository interface {
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.Transaction, error)
	SumCompleted(ctx context.Context, partnerID uuid.UUID) (float64, error)
	ClaimPayout(ctx context.Context, partnerID uuid.UUID, claimRef string) (float64, error)
	FinalizePayout(ctx context.Context, claimRef, transferID string) error
	ReleasePayout(ctx context.Context, claimRef string) error
}

// MissionReader: чтение миссии для проверки оплаты.
type MissionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Mission, error)
}

type PaymentService struct {
	repo         PaymentRepository
	missions     MissionReader
	users        UserLookup
	accounts     domainrepo.PaymentAccounts
	gateway      payment.Gateway
	dashboardURL string
	log          *logrus.Entry
}

func NewPaymentService(
	repo PaymentRepository,
	missions MissionReader,
	users UserLookup,
	accounts domainrepo.PaymentAccounts,
	gateway payment.Gateway,
	dashboardURL string,
) *PaymentService {
	return &PaymentService{
		repo:         repo,
		missions:     missions,
		users:        users,
		accounts:     accounts,
		gateway:      gateway,
		dashboardURL: dashboardURL,
		log:          logger.Component("payments"),
	}
}

type CheckoutInput struct {
	MissionID  uuid.UUID
	SuccessURL string
	CancelURL  string
}

type EarningsResult struct {
	Total        float64
	Transactions []models.Transaction
}

type PayoutResult struct {
	PayoutID string
	Amount   float64
}

// CreateCheckout открывает страницу оплаты миссии для её клиента.
func (s *PaymentService) CreateCheckout(ctx context.Context, actor entity.Actor, in CheckoutInput) (*payment.CheckoutSession, error) {
	if actor.Role != valueobject.RoleClient {
		return nil, apperror.Forbidden("оплата доступна только клиентам")
	}

	m, err := s.missions.FindByID(ctx, in.MissionID)
	if err != nil {
		return nil, err
	}
	if !m.IsOwnedBy(actor.ID) {
		return nil, apperror.Forbidden("это не ваша миссия")
	}
	if m.Status != valueobject.MissionStatusPending && m.PartnerID != nil {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "миссия уже оплачена или в работе")
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	successURL := in.SuccessURL
	if successURL == "" {
		successURL = fmt.Sprintf("%s/missions/%s?success=1", s.dashboardURL, m.ID)
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.dashboardURL + "/missions"
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		MissionID:   m.ID.String(),
		Title:       m.PackageTitle,
		AmountCents: m.Price.Cents(),
		ClientEmail: user.Email,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})
	if err != nil {
		return nil, gatewayError(err, "не удалось создать сессию оплаты")
	}
	return session, nil
}

// HandleWebhook проверяет подпись события. Деньги партнёру переводятся при доставке,
// поэтому здесь событие только фиксируется в логе.
func (s *PaymentService) HandleWebhook(_ context.Context, payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature == "" {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "отсутствует подпись webhook")
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "webhook отклонён")
	}

	if event.Type == payment.EventCheckoutCompleted {
		s.log.WithFields(logrus.Fields{
			"event_id":       event.ID,
			"mission_id":     event.MissionID,
			"payment_intent": event.PaymentIntent,
		}).Info("оплата миссии подтверждена")
	}
	return event, nil
}

func (s *PaymentService) Earnings(ctx context.Context, partnerID uuid.UUID) (*EarningsResult, error) {
	total, err := s.repo.SumCompleted(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return &EarningsResult{Total: total, Transactions: txs}, nil
}

// Payout переводит партнёру все завершённые, но ещё не выплаченные суммы.
func (s *PaymentService) Payout(ctx context.Context, partnerID uuid.UUID) (*PayoutResult, error) {
	account, err := s.accounts.PaymentAccountID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if account == "" {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "платёжный аккаунт не привязан")
	}

	claimRef := "payout-pending:" + uuid.NewString()
	balance, err := s.repo.ClaimPayout(ctx, partnerID, claimRef)
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нет средств для выплаты")
	}

	transferID, err := s.gateway.CreateTransfer(ctx, domainrepo.TransferRequest{
		AmountCents: valueobject.MoneyFromEuros(balance).Cents(),
		Destination: account,
		MissionID:   PayoutMissionRef,
	})
	if err != nil {
		if relErr := s.repo.ReleasePayout(ctx, claimRef); relErr != nil {
			s.log.WithError(relErr).WithField("partner_id", partnerID).Error("не удалось снять захват выплаты")
		}
		return nil, gatewayError(err, "перевод не выполнен")
	}

	if err := s.repo.FinalizePayout(ctx, claimRef, transferID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"partner_id":  partnerID,
			"transfer_id": transferID,
		}).Error("перевод выполнен, но ссылка не сохранена")
	}

	return &PayoutResult{PayoutID: transferID, Amount: balance}, nil
}

func gatewayError(err error, message string) error {
	if errors.Is(err, payment.ErrGatewayNotConfigured) {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "платёжный шлюз не настроен")
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, message)
}
