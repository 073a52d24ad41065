package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
)

// Settlement: выплата партнёру за доставленную миссию (таблица transactions).
type Settlement struct {
	ID               uuid.UUID
	MissionID        uuid.UUID
	PartnerID        uuid.UUID
	Amount           valueobject.Money
	PaymentReference *string
	Status           valueobject.TransactionStatus
	CreatedAt        time.Time
}

// NewSettlement создаёт pending-выплату на долю партнёра.
func NewSettlement(m *Mission) *Settlement {
	return &Settlement{
		ID:        uuid.New(),
		MissionID: m.ID,
		PartnerID: *m.PartnerID,
		Amount:    m.PartnerAmount(),
		Status:    valueobject.TransactionPending,
		CreatedAt: time.Now(),
	}
}

func (s *Settlement) Complete(reference string) {
	s.Status = valueobject.TransactionCompleted
	if reference != "" {
		s.PaymentReference = &reference
	}
}
