package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen     = "open"
	DisputeStatusInReview = "in_review"
	DisputeStatusResolved = "resolved"
)

type Dispute struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	MissionID  uuid.UUID  `db:"mission_id" json:"mission_id"`
	RaisedBy   uuid.UUID  `db:"raised_by" json:"raised_by"`
	Reason     string     `db:"reason" json:"reason"`
	Status     string     `db:"status" json:"status"`
	Resolution *string    `db:"resolution" json:"resolution"`
	ResolvedBy *uuid.UUID `db:"resolved_by" json:"resolved_by"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

func IsValidDisputeStatus(s string) bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusInReview, DisputeStatusResolved:
		return true
	}
	return false
}
