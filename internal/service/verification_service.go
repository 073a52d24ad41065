package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository"
)

// VerificationStore: хранилище одноразовых токенов подтверждения email.
type VerificationStore interface {
	CreateToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.VerificationToken, error)
	Consume(ctx context.Context, token string, now time.Time) (uuid.UUID, error)
}

type VerificationService struct {
	repo    VerificationStore
	mailer  Mailer
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewVerificationService(repo VerificationStore, mailer Mailer, ttl time.Duration, baseURL string) *VerificationService {
	return &VerificationService{repo: repo, mailer: mailer, ttl: ttl, baseURL: baseURL, now: time.Now}
}

// Issue сохраняет новый токен и отправляет ссылку подтверждения на email пользователя.
func (s *VerificationService) Issue(ctx context.Context, user *models.User) (string, error) {
	token, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("verification service: %w", err)
	}

	if _, err := s.repo.CreateToken(ctx, user.ID, token, s.now().Add(s.ttl)); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s?token=%s", s.baseURL, token)
	body := fmt.Sprintf("Здравствуйте, %s! Подтвердите email по ссылке: %s", user.FirstName, link)
	if err := s.mailer.Send(ctx, user.Email, "Подтверждение email", body); err != nil {
		return "", fmt.Errorf("verification service: send mail %w", err)
	}

	return token, nil
}

// Verify погашает токен и подтверждает пользователя.
func (s *VerificationService) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, apperror.New(apperror.ErrCodeBadRequest, "токен подтверждения обязателен")
	}

	userID, err := s.repo.Consume(ctx, token, s.now())
	if errors.Is(err, repository.ErrVerificationTokenInvalid) {
		return uuid.Nil, apperror.New(apperror.ErrCodeUnauthorized, "токен недействителен или истёк")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
