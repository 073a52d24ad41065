package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository"
	"github.com/ecorelais/delivery-backend/internal/validation"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100

	// EventNotification: имя события WebSocket с новым уведомлением.
	EventNotification = "notification"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Pusher доставляет событие подключённым сессиям пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data any) error
}

// UserLookup нужен для адреса письма.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// NotificationService хранит уведомления и рассылает их по каналам.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
	users  UserLookup
	mailer Mailer
	log    *logrus.Entry
}

// NewNotificationService создаёт сервис. pusher, users и mailer могут быть nil.
func NewNotificationService(repo NotificationRepository, pusher Pusher, users UserLookup, mailer Mailer) *NotificationService {
	return &NotificationService{
		repo:   repo,
		pusher: pusher,
		users:  users,
		mailer: mailer,
		log:    logger.Component("notifications"),
	}
}

// SendInput: рассылка от администратора.
type SendInput struct {
	UserIDs []uuid.UUID
	Type    string
	Message string
}

// Notify сохраняет уведомление, пушит его по WebSocket и отправляет письмо.
// Ошибкой считается только неудачное сохранение.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, message string) error {
	n := &models.Notification{UserID: userID, Type: kind, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("notification service: save %w", err)
	}

	s.push(n)
	s.mail(ctx, n)
	return nil
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkRead отмечает уведомление прочитанным; чужое уведомление: 403.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, apperror.ErrNotificationNotFound
		}
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	updated, err := s.repo.MarkAsRead(ctx, id)
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return nil, apperror.ErrNotificationNotFound
	}
	return updated, err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// Send создаёт по уведомлению на каждого получателя.
func (s *NotificationService) Send(ctx context.Context, in SendInput) ([]*models.Notification, error) {
	if len(in.UserIDs) == 0 {
		return nil, apperror.Validation("нужно указать user_id или user_ids")
	}
	kind := strings.TrimSpace(in.Type)
	if kind == "" {
		return nil, apperror.Validation("type обязателен")
	}
	if err := validation.ValidateMessageContent(in.Message); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	seen := make(map[uuid.UUID]struct{}, len(in.UserIDs))
	batch := make([]*models.Notification, 0, len(in.UserIDs))
	for _, id := range in.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, &models.Notification{UserID: id, Type: kind, Message: in.Message})
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	for _, n := range batch {
		s.push(n)
	}
	return batch, nil
}

func (s *NotificationService) push(n *models.Notification) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.Push(n.UserID, EventNotification, n); err != nil {
		s.log.WithError(err).WithField("user_id", n.UserID).Warn("не удалось отправить уведомление по WebSocket")
	}
}

func (s *NotificationService) mail(ctx context.Context, n *models.Notification) {
	if s.mailer == nil || s.users == nil {
		return
	}
	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", n.UserID).Warn("не удалось найти получателя письма")
		return
	}
	if err := s.mailer.Send(ctx, user.Email, "Eco-Relais: "+n.Type, n.Message); err != nil {
		s.log.WithError(err).WithField("user_id", n.UserID).Warn("не удалось отправить письмо")
	}
}
