package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы транзакций
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction: выплата партнёру за доставленную миссию.
type Transaction struct {
	ID               uuid.UUID `db:"id" json:"id"`
	MissionID        uuid.UUID `db:"mission_id" json:"mission_id"`
	PartnerID        uuid.UUID `db:"partner_id" json:"partner_id"`
	Amount           float64   `db:"amount" json:"amount"`
	PaymentReference *string   `db:"payment_reference" json:"-"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// PendingSummary: сводка незакрытых выплат для сверки.
type PendingSummary struct {
	Count       int        `db:"count"`
	Total       float64    `db:"total"`
	OldestSince *time.Time `db:"oldest"`
}
