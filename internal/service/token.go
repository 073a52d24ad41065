package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/models"
)

const tokenIssuer = "eco-relais"

var signingMethods = []string{jwt.SigningMethodHS256.Alg()}

// TokenPair хранит пару access/refresh токенов.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccessClaims: данные, извлечённые из access токена.
type AccessClaims struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type accessJWT struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager подписывает access и refresh токены разными секретами.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// GeneratePair выпускает пару токенов и возвращает срок жизни refresh-сессии.
func (m *TokenManager) GeneratePair(user *models.User) (*TokenPair, time.Time, error) {
	issued := m.now()
	sessionEnd := issued.Add(m.refreshTTL)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessJWT{
		Email:            user.Email,
		Role:             user.Role,
		RegisteredClaims: m.registered(user.ID, issued, issued.Add(m.accessTTL)),
	}).SignedString(m.accessSecret)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("token: sign access %w", err)
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		m.registered(user.ID, issued, sessionEnd),
	).SignedString(m.refreshSecret)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("token: sign refresh %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL / time.Second),
	}, sessionEnd, nil
}

// ParseRefresh проверяет подпись и срок refresh токена.
func (m *TokenManager) ParseRefresh(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if err := m.parse(token, claims, m.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseAccess проверяет access токен и достаёт из него пользователя и роль.
func (m *TokenManager) ParseAccess(token string) (*AccessClaims, error) {
	claims := &accessJWT{}
	if err := m.parse(token, claims, m.accessSecret); err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token: некорректный subject: %w", err)
	}
	return &AccessClaims{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}

func (m *TokenManager) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods(signingMethods), jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("token: невалидный токен")
	}
	return nil
}

// registered заполняет стандартные поля; случайный ID делает каждый refresh токен уникальным.
func (m *TokenManager) registered(userID uuid.UUID, issued, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}
