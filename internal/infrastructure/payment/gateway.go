package payment

import (
	"context"
	"errors"

	"github.com/ecorelais/delivery-backend/internal/domain/repository"
)

// ErrGatewayNotConfigured: ключ платёжного провайдера не задан.
var ErrGatewayNotConfigured = errors.New("payment gateway: не настроен")

// ErrInvalidSignature: подпись webhook не прошла проверку.
var ErrInvalidSignature = errors.New("payment gateway: неверная подпись webhook")

// CheckoutRequest: оплата миссии клиентом на странице провайдера.
type CheckoutRequest struct {
	MissionID   string
	Title       string
	AmountCents int64
	ClientEmail string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent: разобранное событие провайдера.
type WebhookEvent struct {
	ID            string
	Type          string
	MissionID     string
	PaymentIntent string
}

const EventCheckoutCompleted = "checkout.session.completed"

// Gateway описывает платёжного провайдера (оплата, переводы партнёрам, webhook).
type Gateway interface {
	repository.PaymentTransfers
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
	Enabled() bool
}

// Disabled используется, когда ключ провайдера не задан.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateCheckoutSession(context.Context, CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrGatewayNotConfigured
}

func (Disabled) CreateTransfer(context.Context, repository.TransferRequest) (string, error) {
	return "", ErrGatewayNotConfigured
}

func (Disabled) ParseWebhook([]byte, string) (*WebhookEvent, error) {
	return nil, ErrGatewayNotConfigured
}
