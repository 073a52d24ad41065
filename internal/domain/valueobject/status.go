package valueobject

import "github.com/ecorelais/delivery-backend/internal/pkg/apperror"

type MissionStatus string

const (
	MissionStatusPending   MissionStatus = "pending"
	MissionStatusAccepted  MissionStatus = "accepted"
	MissionStatusCollected MissionStatus = "collected"
	MissionStatusInTransit MissionStatus = "in_transit"
	MissionStatusDelivered MissionStatus = "delivered"
	MissionStatusCancelled MissionStatus = "cancelled"
)

var missionTransitions = map[MissionStatus][]MissionStatus{
	MissionStatusPending:   {MissionStatusAccepted, MissionStatusCancelled},
	MissionStatusAccepted:  {MissionStatusCollected, MissionStatusCancelled},
	MissionStatusCollected: {MissionStatusInTransit, MissionStatusCancelled},
	MissionStatusInTransit: {MissionStatusDelivered, MissionStatusCancelled},
	MissionStatusDelivered: {},
	MissionStatusCancelled: {},
}

// AllMissionStatuses в порядке жизненного цикла.
var AllMissionStatuses = []MissionStatus{
	MissionStatusPending,
	MissionStatusAccepted,
	MissionStatusCollected,
	MissionStatusInTransit,
	MissionStatusDelivered,
	MissionStatusCancelled,
}

func (s MissionStatus) IsValid() bool {
	_, ok := missionTransitions[s]
	return ok
}

// IsTerminal: из delivered и cancelled переходов нет.
func (s MissionStatus) IsTerminal() bool {
	return s == MissionStatusDelivered || s == MissionStatusCancelled
}

func (s MissionStatus) CanTransitionTo(next MissionStatus) bool {
	for _, allowed := range missionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MissionStatus) String() string {
	return string(s)
}

func NewMissionStatus(status string) (MissionStatus, error) {
	s := MissionStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус миссии")
	}
	return s, nil
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeInReview DisputeStatus = "in_review"
	DisputeResolved DisputeStatus = "resolved"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeOpen, DisputeInReview, DisputeResolved:
		return true
	}
	return false
}
