package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleClient  = "client"
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// RedactedAccount подставляется вместо идентификатора платёжного аккаунта в ответах.
const RedactedAccount = "[REDACTED]"

// User описывает сущность пользователя платформы.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             string     `db:"role" json:"role"`
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	Phone            *string    `db:"phone" json:"phone"`
	AddressLat       *float64   `db:"address_lat" json:"address_lat"`
	AddressLng       *float64   `db:"address_lng" json:"address_lng"`
	Verified         bool       `db:"verified" json:"verified"`
	PaymentAccountID *string    `db:"payment_account_id" json:"-"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) HasPaymentAccount() bool {
	return u.PaymentAccountID != nil && *u.PaymentAccountID != ""
}

// UserView: представление пользователя для API, платёжный аккаунт скрыт.
type UserView struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          *string   `json:"phone"`
	AddressLat     *float64  `json:"address_lat"`
	AddressLng     *float64  `json:"address_lng"`
	Verified       bool      `json:"verified"`
	PaymentAccount *string   `json:"stripe_account_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) View() UserView {
	v := UserView{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		AddressLat: u.AddressLat,
		AddressLng: u.AddressLng,
		Verified:   u.Verified,
		CreatedAt:  u.CreatedAt,
	}
	if u.HasPaymentAccount() {
		redacted := RedactedAccount
		v.PaymentAccount = &redacted
	}
	return v
}

// ProfileUpdate: частичное обновление профиля; nil означает «не менять».
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	AddressLat *float64
	AddressLng *float64
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserFilter: фильтр админского списка пользователей.
type UserFilter struct {
	Role   string
	Limit  int
	Offset int
}
