package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissionStatusTransitions(t *testing.T) {
	assert.True(t, MissionStatusPending.CanTransitionTo(MissionStatusAccepted))
	assert.True(t, MissionStatusAccepted.CanTransitionTo(MissionStatusCollected))
	assert.True(t, MissionStatusCollected.CanTransitionTo(MissionStatusInTransit))
	assert.True(t, MissionStatusInTransit.CanTransitionTo(MissionStatusDelivered))

	assert.False(t, MissionStatusPending.CanTransitionTo(MissionStatusCollected))
	assert.False(t, MissionStatusAccepted.CanTransitionTo(MissionStatusDelivered))

	for _, s := range AllMissionStatuses {
		if s.IsTerminal() {
			for _, next := range AllMissionStatuses {
				assert.False(t, s.CanTransitionTo(next), "%s -> %s", s, next)
			}
			continue
		}
		assert.True(t, s.CanTransitionTo(MissionStatusCancelled), "%s должен отменяться", s)
	}
}

func TestNewMissionStatus(t *testing.T) {
	s, err := NewMissionStatus("in_transit")
	assert.NoError(t, err)
	assert.Equal(t, MissionStatusInTransit, s)

	_, err = NewMissionStatus("lost")
	assert.Error(t, err)
}
