package repository

import (
	"context"

	"github.com/google/uuid"
)

// PaymentAccounts отдаёт внешний платёжный аккаунт партнёра ("": не привязан).
type PaymentAccounts interface {
	PaymentAccountID(ctx context.Context, userID uuid.UUID) (string, error)
}

// TransferRequest: перевод доли партнёра на его платёжный аккаунт.
type TransferRequest struct {
	AmountCents int64
	Destination string
	MissionID   string
}

type PaymentTransfers interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (string, error)
}

// QRIssuer выпускает проверочный артефакт миссии: payload для сверки и изображение (data URL).
type QRIssuer interface {
	Issue(missionID uuid.UUID) (payload string, image string, err error)
}

// Notifier доставляет уведомление пользователю.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, message string) error
}
