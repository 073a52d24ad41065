package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository"
	"github.com/ecorelais/delivery-backend/internal/validation"
)

// ProfileRepository: операции над профилем пользователя.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.User, error)
	SetPaymentAccount(ctx context.Context, id uuid.UUID, accountID string) error
}

// UserService: профиль и платёжный аккаунт текущего пользователя.
type UserService struct {
	repo ProfileRepository
}

func NewUserService(repo ProfileRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	return user, err
}

// UpdateProfile проверяет переданные поля и применяет их.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.User, error) {
	if upd.FirstName != nil {
		if err := validation.ValidateName("имя", *upd.FirstName); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		trimmed := strings.TrimSpace(*upd.FirstName)
		upd.FirstName = &trimmed
	}
	if upd.LastName != nil {
		if err := validation.ValidateName("фамилия", *upd.LastName); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		trimmed := strings.TrimSpace(*upd.LastName)
		upd.LastName = &trimmed
	}
	if upd.Phone != nil {
		if err := validation.ValidatePhone(*upd.Phone); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}
	if upd.AddressLat != nil {
		if err := validation.ValidateLatitude(*upd.AddressLat); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}
	if upd.AddressLng != nil {
		if err := validation.ValidateLongitude(*upd.AddressLng); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	user, err := s.repo.UpdateProfile(ctx, userID, upd)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	return user, err
}

// LinkPaymentAccount сохраняет идентификатор подключённого аккаунта партнёра.
func (s *UserService) LinkPaymentAccount(ctx context.Context, userID uuid.UUID, role, accountID string) error {
	if role != models.RolePartner {
		return apperror.Forbidden("привязать платёжный аккаунт может только партнёр")
	}
	accountID = strings.TrimSpace(accountID)
	if !strings.HasPrefix(accountID, "acct_") {
		return apperror.Validation("некорректный идентификатор платёжного аккаунта")
	}

	err := s.repo.SetPaymentAccount(ctx, userID, accountID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	return err
}
