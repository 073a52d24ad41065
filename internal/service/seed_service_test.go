package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
)

type collectingMissions struct {
	created []*entity.Mission
}

func (c *collectingMissions) Create(_ context.Context, m *entity.Mission) error {
	c.created = append(c.created, m)
	return nil
}

func TestSeedService_IdempotentUsers(t *testing.T) {
	users := newMemoryUserRepository()
	missions := &collectingMissions{}
	svc := NewSeedService(users, missions, 42)

	res, err := svc.SeedData(context.Background(), 2, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 5, res.Missions)
	for _, m := range missions.created {
		assert.Equal(t, valueobject.MissionStatusPending, m.Status)
		assert.Equal(t, valueobject.QuoteFor(m.PackageSize).Price, m.Price)
	}

	again, err := svc.SeedData(context.Background(), 2, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Users)
}
