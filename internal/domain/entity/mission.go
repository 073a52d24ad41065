package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// Actor: пользователь, от имени которого выполняется операция.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.Role
}

func (a Actor) IsAdmin() bool { return a.Role == valueobject.RoleAdmin }

// PersonSummary: имя клиента или партнёра, подтягиваемое при чтении миссии.
type PersonSummary struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
}

type Mission struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	PartnerID       *uuid.UUID
	PackageTitle    string
	PackageSize     valueobject.PackageSize
	PackagePhotoURL *string
	Pickup          Address
	Delivery        Address
	PickupTimeSlot  string
	Status          valueobject.MissionStatus
	Price           valueobject.Money
	Commission      valueobject.Money
	QRCode          *string
	CreatedAt       time.Time
	CompletedAt     *time.Time

	Client  *PersonSummary
	Partner *PersonSummary
}

type Address struct {
	Line  string
	Point valueobject.Point
}

// MissionDraft: данные клиента для новой миссии. Цена в черновике не задаётся.
type MissionDraft struct {
	PackageTitle    string
	PackageSize     string
	PackagePhotoURL *string
	PickupAddress   string
	PickupLat       float64
	PickupLng       float64
	DeliveryAddress string
	DeliveryLat     float64
	DeliveryLng     float64
	PickupTimeSlot  string
}

func NewMission(clientID uuid.UUID, d MissionDraft) (*Mission, error) {
	title := strings.TrimSpace(d.PackageTitle)
	if title == "" {
		return nil, apperror.Validation("название посылки обязательно")
	}
	size, err := valueobject.ParsePackageSize(d.PackageSize)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.PickupAddress) == "" {
		return nil, apperror.Validation("адрес забора обязателен")
	}
	if strings.TrimSpace(d.DeliveryAddress) == "" {
		return nil, apperror.Validation("адрес доставки обязателен")
	}
	if strings.TrimSpace(d.PickupTimeSlot) == "" {
		return nil, apperror.Validation("время забора обязательно")
	}
	pickup, err := valueobject.NewPoint(d.PickupLat, d.PickupLng)
	if err != nil {
		return nil, apperror.Validation("некорректные координаты забора")
	}
	delivery, err := valueobject.NewPoint(d.DeliveryLat, d.DeliveryLng)
	if err != nil {
		return nil, apperror.Validation("некорректные координаты доставки")
	}

	quote := valueobject.QuoteFor(size)
	return &Mission{
		ID:              uuid.New(),
		ClientID:        clientID,
		PackageTitle:    title,
		PackageSize:     size,
		PackagePhotoURL: d.PackagePhotoURL,
		Pickup:          Address{Line: strings.TrimSpace(d.PickupAddress), Point: pickup},
		Delivery:        Address{Line: strings.TrimSpace(d.DeliveryAddress), Point: delivery},
		PickupTimeSlot:  strings.TrimSpace(d.PickupTimeSlot),
		Status:          valueobject.MissionStatusPending,
		Price:           quote.Price,
		Commission:      quote.Commission,
		CreatedAt:       time.Now(),
	}, nil
}

func (m *Mission) IsOwnedBy(userID uuid.UUID) bool {
	return m.ClientID == userID
}

func (m *Mission) IsAssignedTo(userID uuid.UUID) bool {
	return m.PartnerID != nil && *m.PartnerID == userID
}

// CanView: клиент-владелец, назначенный партнёр или администратор.
func (m *Mission) CanView(a Actor) bool {
	return a.IsAdmin() || m.IsOwnedBy(a.ID) || m.IsAssignedTo(a.ID)
}

// PartnerAmount: выплата партнёру за доставку.
func (m *Mission) PartnerAmount() valueobject.Money {
	return valueobject.PartnerShare(m.Price, m.Commission)
}

// Accept назначает партнёра. Для не-pending миссии возвращает конфликт.
func (m *Mission) Accept(partnerID uuid.UUID) error {
	if m.Status != valueobject.MissionStatusPending {
		return apperror.ErrMissionTaken
	}
	m.PartnerID = &partnerID
	m.Status = valueobject.MissionStatusAccepted
	return nil
}

// Collect отмечает, что партнёр забрал посылку. qrPayload необязателен.
func (m *Mission) Collect(partnerID uuid.UUID, qrPayload string) error {
	if !m.IsAssignedTo(partnerID) {
		return apperror.Forbidden("миссия назначена другому партнёру")
	}
	if m.Status != valueobject.MissionStatusAccepted {
		return apperror.State("забрать посылку можно только из статуса accepted")
	}
	if qrPayload != "" && !m.MatchesQRPayload(qrPayload) {
		return apperror.Validation("QR-код не соответствует миссии")
	}
	return m.transition(valueobject.MissionStatusCollected, "")
}

// StartTransit переводит миссию в in_transit. Другие значения статуса отклоняются.
func (m *Mission) StartTransit(partnerID uuid.UUID, requested string) error {
	if valueobject.MissionStatus(requested) != valueobject.MissionStatusInTransit {
		return apperror.Validation("разрешён только статус in_transit")
	}
	if !m.IsAssignedTo(partnerID) {
		return apperror.Forbidden("миссия назначена другому партнёру")
	}
	return m.transition(valueobject.MissionStatusInTransit, "в пути можно перевести только собранную миссию")
}

// Deliver завершает миссию и проставляет время завершения.
func (m *Mission) Deliver(partnerID uuid.UUID, at time.Time) error {
	if !m.IsAssignedTo(partnerID) {
		return apperror.Forbidden("миссия назначена другому партнёру")
	}
	if err := m.transition(valueobject.MissionStatusDelivered, "доставить можно только миссию в пути"); err != nil {
		return err
	}
	m.CompletedAt = &at
	return nil
}

// Cancel отменяет миссию и возвращает получателя уведомления (uuid.Nil: уведомлять некого).
func (m *Mission) Cancel(a Actor) (uuid.UUID, error) {
	isClient := m.IsOwnedBy(a.ID)
	if !isClient && !m.IsAssignedTo(a.ID) && !a.IsAdmin() {
		return uuid.Nil, apperror.Forbidden("отменить миссию может клиент, назначенный партнёр или администратор")
	}
	if err := m.transition(valueobject.MissionStatusCancelled, "миссия уже завершена или отменена"); err != nil {
		return uuid.Nil, err
	}

	if isClient {
		if m.PartnerID != nil {
			return *m.PartnerID, nil
		}
		return uuid.Nil, nil
	}
	return m.ClientID, nil
}

// SetQRCode сохраняет выпущенный QR-артефакт.
func (m *Mission) SetQRCode(code string) {
	m.QRCode = &code
}

// MatchesQRPayload проверяет, что содержимое QR относится к этой миссии.
func (m *Mission) MatchesQRPayload(payload string) bool {
	prefix := m.ID.String() + ":"
	return len(payload) > len(prefix) && strings.HasPrefix(payload, prefix)
}

func (m *Mission) transition(next valueobject.MissionStatus, msg string) error {
	if !m.Status.CanTransitionTo(next) {
		return apperror.State(msg)
	}
	m.Status = next
	return nil
}
