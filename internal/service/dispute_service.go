package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	domainrepo "github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository"
	"github.com/ecorelais/delivery-backend/internal/validation"
)

// NotificationDisputeResolved: тип уведомления инициатору о закрытии спора.
const NotificationDisputeResolved = "dispute_resolved"

type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, status string) ([]models.Dispute, error)
	UpdateStatus(ctx context.Context, d *models.Dispute, from string) error
}

type DisputeService struct {
	repo     DisputeRepository
	missions MissionReader
	notifier domainrepo.Notifier
	now      func() time.Time
}

func NewDisputeService(repo DisputeRepository, missions MissionReader, notifier domainrepo.Notifier) *DisputeService {
	return &DisputeService{repo: repo, missions: missions, notifier: notifier, now: time.Now}
}

// Create открывает спор по миссии. Открыть его может клиент или назначенный партнёр.
func (s *DisputeService) Create(ctx context.Context, actor entity.Actor, missionID uuid.UUID, reason string) (*models.Dispute, error) {
	if actor.Role != valueobject.RoleClient && actor.Role != valueobject.RolePartner {
		return nil, apperror.Forbidden("спор могут открыть только клиент или партнёр")
	}
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateNonEmpty("причина", reason); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateLength("причина", reason, 0, validation.MaxReasonLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	m, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if !m.IsOwnedBy(actor.ID) && !m.IsAssignedTo(actor.ID) {
		return nil, apperror.Forbidden("вы не участник этой миссии")
	}

	d := &models.Dispute{
		MissionID: missionID,
		RaisedBy:  actor.ID,
		Reason:    reason,
		Status:    models.DisputeStatusOpen,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrMissionRefMissing) {
			return nil, apperror.ErrMissionNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DisputeService) List(ctx context.Context, status string) ([]models.Dispute, error) {
	if status != "" && !models.IsValidDisputeStatus(status) {
		return nil, apperror.Validation("неизвестный статус спора")
	}
	return s.repo.List(ctx, status)
}

// Review берёт открытый спор в работу.
func (s *DisputeService) Review(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DisputeStatusOpen {
		return nil, apperror.State("взять в работу можно только открытый спор")
	}

	d.Status = models.DisputeStatusInReview
	if err := s.save(ctx, d, models.DisputeStatusOpen); err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve закрывает спор с текстом решения и уведомляет инициатора.
func (s *DisputeService) Resolve(ctx context.Context, adminID, id uuid.UUID, resolution string) (*models.Dispute, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, apperror.Validation("текст решения обязателен")
	}

	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == models.DisputeStatusResolved {
		return nil, apperror.State("спор уже закрыт")
	}

	from := d.Status
	now := s.now().UTC()
	d.Status = models.DisputeStatusResolved
	d.Resolution = &resolution
	d.ResolvedBy = &adminID
	d.ResolvedAt = &now
	if err := s.save(ctx, d, from); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, d.RaisedBy, NotificationDisputeResolved, "Ваш спор рассмотрен: "+resolution); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"dispute_id": d.ID,
				"error":      err.Error(),
			}).Warn("dispute service: не удалось уведомить инициатора")
		}
	}
	return d, nil
}

func (s *DisputeService) get(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	return d, err
}

func (s *DisputeService) save(ctx context.Context, d *models.Dispute, from string) error {
	err := s.repo.UpdateStatus(ctx, d, from)
	if errors.Is(err, repository.ErrDisputeStale) {
		return apperror.State("статус спора изменился, повторите запрос")
	}
	return err
}
