package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
)

// CreateMissionRequest принимается как JSON или multipart-форма (с полем photo).
// Цена и комиссия из запроса не читаются. Координаты обязательны, 0 допустим.
type CreateMissionRequest struct {
	PackageTitle    string   `json:"package_title" form:"package_title" binding:"required"`
	PackageSize     string   `json:"package_size" form:"package_size" binding:"required,oneof=small medium large"`
	PickupAddress   string   `json:"pickup_address" form:"pickup_address" binding:"required"`
	PickupLat       *float64 `json:"pickup_lat" form:"pickup_lat" binding:"required"`
	PickupLng       *float64 `json:"pickup_lng" form:"pickup_lng" binding:"required"`
	DeliveryAddress string   `json:"delivery_address" form:"delivery_address" binding:"required"`
	DeliveryLat     *float64 `json:"delivery_lat" form:"delivery_lat" binding:"required"`
	DeliveryLng     *float64 `json:"delivery_lng" form:"delivery_lng" binding:"required"`
	PickupTimeSlot  string   `json:"pickup_time_slot" form:"pickup_time_slot" binding:"required"`
}

// Draft вызывается только после успешной валидации: координаты не nil.
func (r CreateMissionRequest) Draft(photoURL *string) entity.MissionDraft {
	return entity.MissionDraft{
		PackageTitle:    r.PackageTitle,
		PackageSize:     r.PackageSize,
		PackagePhotoURL: photoURL,
		PickupAddress:   r.PickupAddress,
		PickupLat:       *r.PickupLat,
		PickupLng:       *r.PickupLng,
		DeliveryAddress: r.DeliveryAddress,
		DeliveryLat:     *r.DeliveryLat,
		DeliveryLng:     *r.DeliveryLng,
		PickupTimeSlot:  r.PickupTimeSlot,
	}
}

type CollectMissionRequest struct {
	QRPayload string `json:"qr_payload"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type PersonDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

type MissionResponse struct {
	ID              uuid.UUID  `json:"id"`
	ClientID        uuid.UUID  `json:"client_id"`
	PartnerID       *uuid.UUID `json:"partner_id"`
	PackageTitle    string     `json:"package_title"`
	PackageSize     string     `json:"package_size"`
	PackagePhotoURL *string    `json:"package_photo_url"`
	PickupAddress   string     `json:"pickup_address"`
	PickupLat       float64    `json:"pickup_lat"`
	PickupLng       float64    `json:"pickup_lng"`
	DeliveryAddress string     `json:"delivery_address"`
	DeliveryLat     float64    `json:"delivery_lat"`
	DeliveryLng     float64    `json:"delivery_lng"`
	PickupTimeSlot  string     `json:"pickup_time_slot"`
	Status          string     `json:"status"`
	Price           float64    `json:"price"`
	Commission      float64    `json:"commission"`
	QRCode          *string    `json:"qr_code"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	Client          *PersonDTO `json:"client,omitempty"`
	Partner         *PersonDTO `json:"partner,omitempty"`
}

func ToMissionResponse(m *entity.Mission) MissionResponse {
	return MissionResponse{
		ID:              m.ID,
		ClientID:        m.ClientID,
		PartnerID:       m.PartnerID,
		PackageTitle:    m.PackageTitle,
		PackageSize:     string(m.PackageSize),
		PackagePhotoURL: m.PackagePhotoURL,
		PickupAddress:   m.Pickup.Line,
		PickupLat:       m.Pickup.Point.Lat,
		PickupLng:       m.Pickup.Point.Lng,
		DeliveryAddress: m.Delivery.Line,
		DeliveryLat:     m.Delivery.Point.Lat,
		DeliveryLng:     m.Delivery.Point.Lng,
		PickupTimeSlot:  m.PickupTimeSlot,
		Status:          string(m.Status),
		Price:           m.Price.Euros(),
		Commission:      m.Commission.Euros(),
		QRCode:          m.QRCode,
		CreatedAt:       m.CreatedAt,
		CompletedAt:     m.CompletedAt,
		Client:          toPerson(m.Client),
		Partner:         toPerson(m.Partner),
	}
}

func ToMissionResponses(missions []*entity.Mission) []MissionResponse {
	out := make([]MissionResponse, 0, len(missions))
	for _, m := range missions {
		out = append(out, ToMissionResponse(m))
	}
	return out
}

func toPerson(p *entity.PersonSummary) *PersonDTO {
	if p == nil {
		return nil
	}
	return &PersonDTO{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
}
