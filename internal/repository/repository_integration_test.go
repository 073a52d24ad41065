//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	domainrepo "github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/infrastructure/persistence"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/repository"
)

func newDraft(lat, lng float64) entity.MissionDraft {
	return entity.MissionDraft{
		PackageTitle:    "Colis Vinted",
		PackageSize:     "medium",
		PickupAddress:   "12 rue Oberkampf",
		PickupLat:       lat,
		PickupLng:       lng,
		DeliveryAddress: "3 rue de Charonne",
		DeliveryLat:     lat + 0.002,
		DeliveryLng:     lng + 0.002,
		PickupTimeSlot:  "10:00-12:00",
	}
}

func TestMissionLifecycleWithSettlement(t *testing.T) {
	ctx := context.Background()
	missions := persistence.NewMissionRepositoryAdapter(tcDB)
	payments := repository.NewPaymentRepository(tcDB)

	client := createUser(t, models.RoleClient)
	partner := createUser(t, models.RolePartner)

	m, err := entity.NewMission(client.ID, newDraft(48.859, 2.38))
	require.NoError(t, err)
	require.NoError(t, missions.Create(ctx, m))
	require.NoError(t, missions.SetQRCode(ctx, m.ID, "data:image/png;base64,AAAA"))

	stored, err := missions.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusPending, stored.Status)
	assert.InDelta(t, 5.0, stored.Price.Euros(), 0.001)
	assert.InDelta(t, 1.0, stored.Commission.Euros(), 0.001)
	assert.Equal(t, "Léa", stored.Client.FirstName)
	assert.Nil(t, stored.Partner)
	require.NotNil(t, stored.QRCode)

	// accept
	require.NoError(t, stored.Accept(partner.ID))
	require.NoError(t, missions.Transition(ctx, stored, valueobject.MissionStatusPending))

	// повторный переход из pending уже не проходит
	rival, err := entity.NewMission(client.ID, newDraft(48.859, 2.38))
	require.NoError(t, err)
	rival.ID = m.ID
	require.NoError(t, rival.Accept(uuid.New()))
	assert.ErrorIs(t, missions.Transition(ctx, rival, valueobject.MissionStatusPending), domainrepo.ErrStaleMission)

	require.NoError(t, stored.Collect(partner.ID, ""))
	require.NoError(t, missions.Transition(ctx, stored, valueobject.MissionStatusAccepted))
	require.NoError(t, stored.StartTransit(partner.ID, "in_transit"))
	require.NoError(t, missions.Transition(ctx, stored, valueobject.MissionStatusCollected))

	require.NoError(t, stored.Deliver(partner.ID, time.Now()))
	settlement := entity.NewSettlement(stored)
	require.NoError(t, missions.Deliver(ctx, stored, settlement))

	delivered, err := missions.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.CompletedAt)
	require.NotNil(t, delivered.Partner)
	assert.Equal(t, partner.ID, delivered.Partner.ID)

	txs, err := payments.ListByPartner(ctx, partner.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusPending, txs[0].Status)
	assert.InDelta(t, 4.0, txs[0].Amount, 0.001)

	settlement.Complete("")
	require.NoError(t, missions.UpdateSettlement(ctx, settlement))

	total, err := payments.SumCompleted(ctx, partner.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, total, 0.001)

	claimed, err := payments.ClaimPayout(ctx, partner.ID, "claim-1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, claimed, 0.001)

	again, err := payments.ClaimPayout(ctx, partner.ID, "claim-2")
	require.NoError(t, err)
	assert.Zero(t, again)

	require.NoError(t, payments.ReleasePayout(ctx, "claim-1"))
	claimed, err = payments.ClaimPayout(ctx, partner.ID, "claim-3")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, claimed, 0.001)
	require.NoError(t, payments.FinalizePayout(ctx, "claim-3", "tr_123"))

	txs, err = payments.ListByPartner(ctx, partner.ID)
	require.NoError(t, err)
	require.NotNil(t, txs[0].PaymentReference)
	assert.Equal(t, "tr_123", *txs[0].PaymentReference)
}

func TestDeliverRollsBackOnStaleStatus(t *testing.T) {
	ctx := context.Background()
	missions := persistence.NewMissionRepositoryAdapter(tcDB)
	payments := repository.NewPaymentRepository(tcDB)

	client := createUser(t, models.RoleClient)
	partner := createUser(t, models.RolePartner)

	m, err := entity.NewMission(client.ID, newDraft(48.86, 2.37))
	require.NoError(t, err)
	require.NoError(t, missions.Create(ctx, m))
	require.NoError(t, m.Accept(partner.ID))
	require.NoError(t, missions.Transition(ctx, m, valueobject.MissionStatusPending))

	// миссия в базе accepted, а не in_transit
	m.Status = valueobject.MissionStatusDelivered
	err = missions.Deliver(ctx, m, entity.NewSettlement(m))
	assert.ErrorIs(t, err, domainrepo.ErrStaleMission)

	txs, err := payments.ListByPartner(ctx, partner.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFindNearbyPending(t *testing.T) {
	ctx := context.Background()
	missions := persistence.NewMissionRepositoryAdapter(tcDB)
	client := createUser(t, models.RoleClient)

	// Лион: далеко от остальных тестовых миссий в Париже.
	near, err := entity.NewMission(client.ID, newDraft(45.764, 4.8357))
	require.NoError(t, err)
	require.NoError(t, missions.Create(ctx, near))

	found, err := missions.FindNearbyPending(ctx, valueobject.Point{Lat: 45.765, Lng: 4.836}, 5000, 20)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, near.ID)

	far, err := missions.FindNearbyPending(ctx, valueobject.Point{Lat: 43.2965, Lng: 5.3698}, 5000, 20)
	require.NoError(t, err)
	for _, f := range far {
		assert.NotEqual(t, near.ID, f.ID)
	}
}

func TestMissionCreateUnknownClient(t *testing.T) {
	missions := persistence.NewMissionRepositoryAdapter(tcDB)

	m, err := entity.NewMission(uuid.New(), newDraft(48.85, 2.35))
	require.NoError(t, err)
	assert.ErrorIs(t, missions.Create(context.Background(), m), apperror.ErrUserNotFound)
}

func TestUserRepositoryEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(tcDB)
	u := createUser(t, models.RoleClient)

	dup := &models.User{
		Email:        "UPPER-" + u.Email,
		PasswordHash: "hash",
		Role:         models.RoleClient,
		FirstName:    "Hugo",
		LastName:     "Petit",
	}
	require.NoError(t, users.Create(ctx, dup))

	clash := *dup
	clash.Email = "upper-" + u.Email
	assert.ErrorIs(t, users.Create(ctx, &clash), repository.ErrEmailTaken)

	found, err := users.GetByEmail(ctx, clash.Email)
	require.NoError(t, err)
	assert.Equal(t, dup.ID, found.ID)
}

func TestSessionsExpire(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(tcDB)
	u := createUser(t, models.RolePartner)

	live := &models.Session{UserID: u.ID, RefreshToken: uuid.NewString(), ExpiresAt: time.Now().Add(time.Hour)}
	dead := &models.Session{UserID: u.ID, RefreshToken: uuid.NewString(), ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, users.CreateSession(ctx, live))
	require.NoError(t, users.CreateSession(ctx, dead))

	_, err := users.GetSession(ctx, dead.RefreshToken)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	removed, err := users.DeleteExpiredSessions(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	got, err := users.GetSession(ctx, live.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
}

func TestVerificationTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	tokens := repository.NewVerificationRepository(tcDB)
	users := repository.NewUserRepository(tcDB)
	u := createUser(t, models.RoleClient)

	token := uuid.NewString()
	_, err := tokens.CreateToken(ctx, u.ID, token, time.Now().Add(time.Hour))
	require.NoError(t, err)

	userID, err := tokens.Consume(ctx, token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	verified, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	_, err = tokens.Consume(ctx, token, time.Now())
	assert.ErrorIs(t, err, repository.ErrVerificationTokenInvalid)

	removed, err := tokens.DeleteStale(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))
}

func TestNotificationBatchAndReadState(t *testing.T) {
	ctx := context.Background()
	notifications := repository.NewNotificationRepository(tcDB)
	u := createUser(t, models.RolePartner)

	batch := []*models.Notification{
		{UserID: u.ID, Type: "admin", Message: "Первое"},
		{UserID: u.ID, Type: "admin", Message: "Второе"},
	}
	require.NoError(t, notifications.CreateBatch(ctx, batch))
	assert.NotEqual(t, uuid.Nil, batch[0].ID)

	unread, err := notifications.CountUnread(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	read, err := notifications.MarkAsRead(ctx, batch[0].ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	updated, err := notifications.MarkAllAsRead(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	list, err := notifications.List(ctx, u.ID, 10, 0, true)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = notifications.CreateBatch(ctx, []*models.Notification{{UserID: uuid.New(), Type: "admin", Message: "x"}})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

// monthValue ищет значение месяца в выборке отчёта.
func monthValue(rows []models.MonthlyValue, month string) (float64, bool) {
	for _, r := range rows {
		if r.Month == month {
			return r.Value, true
		}
	}
	return 0, false
}

func TestReportMonthsBucketInUTC(t *testing.T) {
	ctx := context.Background()

	// отдельное соединение с часовым поясом UTC-12
	conn, err := sqlx.Connect("postgres", tcDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	_, err = conn.ExecContext(ctx, `SET TIME ZONE 'Etc/GMT+12'`)
	require.NoError(t, err)

	// 05:00 UTC первого марта: в UTC-12 это ещё февраль
	at := time.Date(2001, 3, 1, 5, 0, 0, 0, time.UTC)
	since := time.Date(2001, 2, 1, 0, 0, 0, 0, time.UTC)

	u := createUser(t, models.RoleClient)
	_, err = tcDB.ExecContext(ctx, `UPDATE users SET created_at = $1 WHERE id = $2`, at, u.ID)
	require.NoError(t, err)

	missions := persistence.NewMissionRepositoryAdapter(tcDB)
	m, err := entity.NewMission(u.ID, newDraft(48.85, 2.35))
	require.NoError(t, err)
	require.NoError(t, missions.Create(ctx, m))
	_, err = tcDB.ExecContext(ctx,
		`UPDATE missions SET status = 'delivered', completed_at = $1 WHERE id = $2`, at, m.ID)
	require.NoError(t, err)

	reports := repository.NewReportRepository(conn)

	users, err := reports.UsersByMonth(ctx, since)
	require.NoError(t, err)
	n, ok := monthValue(users, "2001-03")
	require.True(t, ok, "%v", users)
	assert.InDelta(t, 1.0, n, 0.001)
	_, ok = monthValue(users, "2001-02")
	assert.False(t, ok)

	revenue, err := reports.RevenueByMonth(ctx, since)
	require.NoError(t, err)
	sum, ok := monthValue(revenue, "2001-03")
	require.True(t, ok, "%v", revenue)
	assert.InDelta(t, 1.0, sum, 0.001)
	_, ok = monthValue(revenue, "2001-02")
	assert.False(t, ok)
}
