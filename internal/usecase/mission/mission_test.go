package mission_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/goroutine"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/usecase/mission"
)

type harness struct {
	repo      *memoryMissionRepository
	notifier  *recordingNotifier
	observer  *countingObserver
	accounts  stubAccounts
	transfers *stubTransfers

	create  *mission.CreateMissionUseCase
	get     *mission.GetMissionUseCase
	list    *mission.ListMissionsUseCase
	accept  *mission.AcceptMissionUseCase
	collect *mission.CollectMissionUseCase
	status  *mission.UpdateMissionStatusUseCase
	deliver *mission.DeliverMissionUseCase
	cancel  *mission.CancelMissionUseCase
}

func newHarness() *harness {
	h := &harness{
		repo:      newMemoryMissionRepository(),
		notifier:  &recordingNotifier{},
		observer:  newCountingObserver(),
		accounts:  stubAccounts{},
		transfers: &stubTransfers{},
	}
	events := mission.NewEvents(h.notifier, goroutine.Inline{}, h.observer)
	h.create = mission.NewCreateMissionUseCase(h.repo, stubQR{}, events)
	h.get = mission.NewGetMissionUseCase(h.repo)
	h.list = mission.NewListMissionsUseCase(h.repo)
	h.accept = mission.NewAcceptMissionUseCase(h.repo, events)
	h.collect = mission.NewCollectMissionUseCase(h.repo, events)
	h.status = mission.NewUpdateMissionStatusUseCase(h.repo, events)
	h.deliver = mission.NewDeliverMissionUseCase(h.repo, h.accounts, h.transfers, events)
	h.cancel = mission.NewCancelMissionUseCase(h.repo, events)
	return h
}

func draft(size string) entity.MissionDraft {
	return entity.MissionDraft{
		PackageTitle:    "Книги",
		PackageSize:     size,
		PickupAddress:   "10 rue de Rivoli, Paris",
		PickupLat:       48.8566,
		PickupLng:       2.3522,
		DeliveryAddress: "5 avenue Victor Hugo, Paris",
		DeliveryLat:     48.8606,
		DeliveryLng:     2.3376,
		PickupTimeSlot:  "18:00-20:00",
	}
}

func (h *harness) createMission(t *testing.T, clientID uuid.UUID, size string) *entity.Mission {
	t.Helper()
	m, err := h.create.Execute(context.Background(), clientID, draft(size))
	require.NoError(t, err)
	return m
}

// advance проводит миссию до in_transit от имени партнёра.
func (h *harness) advance(t *testing.T, missionID, partnerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	_, err := h.accept.Execute(ctx, missionID, partnerID)
	require.NoError(t, err)
	_, err = h.collect.Execute(ctx, missionID, partnerID, "")
	require.NoError(t, err)
	_, err = h.status.Execute(ctx, missionID, partnerID, "in_transit")
	require.NoError(t, err)
}

func TestCreateMission_StartsPendingWithServerPricing(t *testing.T) {
	h := newHarness()
	clientID := uuid.New()

	m := h.createMission(t, clientID, "medium")

	assert.Equal(t, valueobject.MissionStatusPending, m.Status)
	assert.Nil(t, m.PartnerID)
	assert.Equal(t, 5.0, m.Price.Euros())
	assert.Equal(t, 1.0, m.Commission.Euros())
	require.NotNil(t, m.QRCode)
	assert.Contains(t, *m.QRCode, "data:image/png;base64,")
}

func TestCreateMission_ValidationErrors(t *testing.T) {
	h := newHarness()
	cases := map[string]func(d *entity.MissionDraft){
		"пустое название":       func(d *entity.MissionDraft) { d.PackageTitle = "  " },
		"неизвестный размер":    func(d *entity.MissionDraft) { d.PackageSize = "huge" },
		"широта вне диапазона":  func(d *entity.MissionDraft) { d.PickupLat = 91 },
		"долгота вне диапазона": func(d *entity.MissionDraft) { d.DeliveryLng = -181 },
		"нет слота":             func(d *entity.MissionDraft) { d.PickupTimeSlot = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := draft("small")
			mutate(&d)
			_, err := h.create.Execute(context.Background(), uuid.New(), d)
			assert.True(t, apperror.IsValidation(err), "ожидалась ошибка валидации, получено %v", err)
		})
	}
}

func TestCreateMission_QRFailureDoesNotFailCreation(t *testing.T) {
	h := newHarness()
	events := mission.NewEvents(h.notifier, goroutine.Inline{}, nil)
	create := mission.NewCreateMissionUseCase(h.repo, stubQR{err: errGateway}, events)

	m, err := create.Execute(context.Background(), uuid.New(), draft("small"))

	require.NoError(t, err)
	assert.Nil(t, m.QRCode)
	assert.Equal(t, valueobject.MissionStatusPending, m.Status)
}

func TestFullLifecycle_DeliversAndSettles(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	clientID, partnerID := uuid.New(), uuid.New()

	m := h.createMission(t, clientID, "medium")

	accepted, err := h.accept.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusAccepted, accepted.Status)
	assert.True(t, accepted.IsAssignedTo(partnerID))

	collected, err := h.collect.Execute(ctx, m.ID, partnerID, m.ID.String()+":token")
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusCollected, collected.Status)

	transit, err := h.status.Execute(ctx, m.ID, partnerID, "in_transit")
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusInTransit, transit.Status)

	res, err := h.deliver.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusDelivered, res.Mission.Status)
	assert.NotNil(t, res.Mission.CompletedAt)
	assert.Equal(t, 4.0, res.Settlement.Amount.Euros())
	assert.Equal(t, partnerID, res.Settlement.PartnerID)

	stored, ok := h.repo.settlementFor(m.ID)
	require.True(t, ok)
	// без платёжного аккаунта выплата закрывается как ручная
	assert.Equal(t, valueobject.TransactionCompleted, stored.Status)
	assert.Empty(t, h.transfers.calls)

	kinds := make([]string, 0)
	for _, n := range h.notifier.all() {
		assert.Equal(t, clientID, n.UserID)
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []string{
		mission.NotificationAccepted,
		mission.NotificationCollected,
		mission.NotificationInTransit,
		mission.NotificationDelivered,
	}, kinds)
}

func TestDeliver_TransfersToLinkedAccount(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	partnerID := uuid.New()
	h.accounts[partnerID] = "acct_123"

	m := h.createMission(t, uuid.New(), "large")
	h.advance(t, m.ID, partnerID)

	res, err := h.deliver.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)

	require.Len(t, h.transfers.calls, 1)
	assert.Equal(t, int64(640), h.transfers.calls[0].AmountCents)
	assert.Equal(t, "acct_123", h.transfers.calls[0].Destination)
	assert.Equal(t, m.ID.String(), h.transfers.calls[0].MissionID)
	assert.Equal(t, valueobject.TransactionCompleted, res.Settlement.Status)
	require.NotNil(t, res.Settlement.PaymentReference)
	assert.Equal(t, "tr_test_1", *res.Settlement.PaymentReference)
}

func TestDeliver_TransferFailureLeavesSettlementPending(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	partnerID := uuid.New()
	h.accounts[partnerID] = "acct_123"
	h.transfers.err = errGateway

	m := h.createMission(t, uuid.New(), "small")
	h.advance(t, m.ID, partnerID)

	res, err := h.deliver.Execute(ctx, m.ID, partnerID)

	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusDelivered, res.Mission.Status)
	stored, ok := h.repo.settlementFor(m.ID)
	require.True(t, ok)
	assert.Equal(t, valueobject.TransactionPending, stored.Status)
	assert.Equal(t, 1, h.observer.transferFailure)
}

func TestDeliver_SettlementUpdateFailureKeepsTransferIDInLog(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := logger.Log.Out
	logger.Log.SetOutput(buf)
	t.Cleanup(func() { logger.Log.SetOutput(prev) })

	h := newHarness()
	partnerID := uuid.New()
	h.accounts[partnerID] = "acct_123"
	h.repo.updateErr = errGateway

	m := h.createMission(t, uuid.New(), "small")
	h.advance(t, m.ID, partnerID)

	res, err := h.deliver.Execute(context.Background(), m.ID, partnerID)

	require.NoError(t, err)
	require.Len(t, h.transfers.calls, 1)
	assert.Equal(t, valueobject.TransactionPending, res.Settlement.Status)
	assert.Nil(t, res.Settlement.PaymentReference)

	stored, ok := h.repo.settlementFor(m.ID)
	require.True(t, ok)
	assert.Equal(t, valueobject.TransactionPending, stored.Status)

	assert.Contains(t, buf.String(), "tr_test_1")
	assert.Contains(t, buf.String(), "transfer_id")
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	h := newHarness()
	h.notifier.err = errGateway
	m := h.createMission(t, uuid.New(), "small")

	accepted, err := h.accept.Execute(context.Background(), m.ID, uuid.New())

	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusAccepted, accepted.Status)
}

func TestAccept_OnlyOneConcurrentWinner(t *testing.T) {
	h := newHarness()
	m := h.createMission(t, uuid.New(), "small")

	const partners = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < partners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.accept.Execute(context.Background(), m.ID, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperror.IsConflict(err):
				conflicts++
			default:
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, partners-1, conflicts)
}

func TestTransitionOrderingIsEnforced(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	partnerID := uuid.New()
	m := h.createMission(t, uuid.New(), "small")

	_, err := h.deliver.Execute(ctx, m.ID, partnerID)
	assert.Error(t, err, "deliver на pending миссии должен падать")

	_, err = h.accept.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)

	_, err = h.deliver.Execute(ctx, m.ID, partnerID)
	assert.True(t, apperror.IsState(err), "deliver из accepted: %v", err)

	_, err = h.status.Execute(ctx, m.ID, partnerID, "in_transit")
	assert.True(t, apperror.IsState(err), "in_transit из accepted: %v", err)

	_, err = h.status.Execute(ctx, m.ID, partnerID, "collected")
	assert.True(t, apperror.IsValidation(err))

	_, err = h.accept.Execute(ctx, m.ID, uuid.New())
	assert.True(t, apperror.IsConflict(err))
}

func TestCollect_RequiresAssignedPartnerAndMatchingQR(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	partnerID := uuid.New()
	m := h.createMission(t, uuid.New(), "small")

	_, err := h.collect.Execute(ctx, m.ID, partnerID, "")
	assert.Error(t, err, "collect на pending миссии должен падать")

	_, err = h.accept.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)

	_, err = h.collect.Execute(ctx, m.ID, uuid.New(), "")
	assert.True(t, apperror.IsForbidden(err))

	_, err = h.collect.Execute(ctx, m.ID, partnerID, uuid.NewString()+":token")
	assert.True(t, apperror.IsValidation(err))

	stored, err := h.repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusAccepted, stored.Status)
}

func TestCancel_PendingThenSecondCancelFails(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	clientID := uuid.New()
	m := h.createMission(t, clientID, "small")
	client := entity.Actor{ID: clientID, Role: valueobject.RoleClient}

	cancelled, err := h.cancel.Execute(ctx, m.ID, client)
	require.NoError(t, err)
	assert.Equal(t, valueobject.MissionStatusCancelled, cancelled.Status)
	// партнёра нет: уведомлять некого
	assert.Empty(t, h.notifier.all())

	_, err = h.cancel.Execute(ctx, m.ID, client)
	assert.True(t, apperror.IsState(err))
}

func TestCancel_NotifiesOtherParty(t *testing.T) {
	ctx := context.Background()
	clientID, partnerID := uuid.New(), uuid.New()

	t.Run("клиент отменяет: уведомляется партнёр", func(t *testing.T) {
		h := newHarness()
		m := h.createMission(t, clientID, "small")
		_, err := h.accept.Execute(ctx, m.ID, partnerID)
		require.NoError(t, err)

		_, err = h.cancel.Execute(ctx, m.ID, entity.Actor{ID: clientID, Role: valueobject.RoleClient})
		require.NoError(t, err)

		sent := h.notifier.all()
		last := sent[len(sent)-1]
		assert.Equal(t, partnerID, last.UserID)
		assert.Equal(t, mission.NotificationCancelled, last.Kind)
	})

	t.Run("администратор отменяет: уведомляется клиент", func(t *testing.T) {
		h := newHarness()
		m := h.createMission(t, clientID, "small")

		_, err := h.cancel.Execute(ctx, m.ID, entity.Actor{ID: uuid.New(), Role: valueobject.RoleAdmin})
		require.NoError(t, err)

		sent := h.notifier.all()
		require.Len(t, sent, 1)
		assert.Equal(t, clientID, sent[0].UserID)
	})
}

func TestCancel_PermissionsAndTerminalStates(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	clientID, partnerID := uuid.New(), uuid.New()
	m := h.createMission(t, clientID, "small")
	h.advance(t, m.ID, partnerID)

	_, err := h.cancel.Execute(ctx, m.ID, entity.Actor{ID: uuid.New(), Role: valueobject.RolePartner})
	assert.True(t, apperror.IsForbidden(err))

	_, err = h.cancel.Execute(ctx, m.ID, entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient})
	assert.True(t, apperror.IsForbidden(err))

	_, err = h.deliver.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)

	_, err = h.cancel.Execute(ctx, m.ID, entity.Actor{ID: clientID, Role: valueobject.RoleClient})
	assert.True(t, apperror.IsState(err))

	_, err = h.collect.Execute(ctx, m.ID, partnerID, "")
	assert.True(t, apperror.IsState(err))
}

func TestDeliver_OnlyAssignedPartner(t *testing.T) {
	h := newHarness()
	partnerID := uuid.New()
	m := h.createMission(t, uuid.New(), "small")
	h.advance(t, m.ID, partnerID)

	_, err := h.deliver.Execute(context.Background(), m.ID, uuid.New())

	assert.True(t, apperror.IsForbidden(err))
}

func TestGetMission_Access(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	clientID, partnerID := uuid.New(), uuid.New()
	m := h.createMission(t, clientID, "small")
	_, err := h.accept.Execute(ctx, m.ID, partnerID)
	require.NoError(t, err)

	for _, actor := range []entity.Actor{
		{ID: clientID, Role: valueobject.RoleClient},
		{ID: partnerID, Role: valueobject.RolePartner},
		{ID: uuid.New(), Role: valueobject.RoleAdmin},
	} {
		_, err := h.get.Execute(ctx, m.ID, actor)
		assert.NoError(t, err, "роль %s", actor.Role)
	}

	_, err = h.get.Execute(ctx, m.ID, entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient})
	assert.True(t, apperror.IsForbidden(err))

	_, err = h.get.Execute(ctx, uuid.New(), entity.Actor{ID: clientID, Role: valueobject.RoleClient})
	assert.True(t, apperror.IsNotFound(err))
}

func TestListMissions_ByRole(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	clientID, partnerID := uuid.New(), uuid.New()
	first := h.createMission(t, clientID, "small")
	h.createMission(t, clientID, "medium")
	h.createMission(t, uuid.New(), "large")

	own, err := h.list.Execute(ctx, entity.Actor{ID: clientID, Role: valueobject.RoleClient}, mission.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	near := valueobject.Point{Lat: 48.8566, Lng: 2.3522}
	nearby, err := h.list.Execute(ctx, entity.Actor{ID: partnerID, Role: valueobject.RolePartner}, mission.ListQuery{Near: &near})
	require.NoError(t, err)
	assert.Len(t, nearby, 3)

	far := valueobject.Point{Lat: 45.0, Lng: 5.0}
	none, err := h.list.Execute(ctx, entity.Actor{ID: partnerID, Role: valueobject.RolePartner}, mission.ListQuery{Near: &far})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = h.accept.Execute(ctx, first.ID, partnerID)
	require.NoError(t, err)
	assigned, err := h.list.Execute(ctx, entity.Actor{ID: partnerID, Role: valueobject.RolePartner}, mission.ListQuery{})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, first.ID, assigned[0].ID)

	_, err = h.list.Execute(ctx, entity.Actor{ID: uuid.New(), Role: valueobject.RoleAdmin}, mission.ListQuery{})
	assert.True(t, apperror.IsForbidden(err))
}
