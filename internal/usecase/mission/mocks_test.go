package mission_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
)

// memoryMissionRepository повторяет условное обновление БД: переход применяется,
// только если сохранённый статус совпадает с ожидаемым.
type memoryMissionRepository struct {
	mu          sync.Mutex
	missions    map[uuid.UUID]entity.Mission
	settlements map[uuid.UUID]entity.Settlement
	qrCodes     map[uuid.UUID]string
	updateErr   error
}

func newMemoryMissionRepository() *memoryMissionRepository {
	return &memoryMissionRepository{
		missions:    make(map[uuid.UUID]entity.Mission),
		settlements: make(map[uuid.UUID]entity.Settlement),
		qrCodes:     make(map[uuid.UUID]string),
	}
}

func (r *memoryMissionRepository) Create(ctx context.Context, m *entity.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missions[m.ID] = *m
	return nil
}

func (r *memoryMissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.missions[id]
	if !ok {
		return nil, apperror.ErrMissionNotFound
	}
	return &m, nil
}

func (r *memoryMissionRepository) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*entity.Mission, error) {
	return r.filter(func(m entity.Mission) bool { return m.ClientID == clientID }), nil
}

func (r *memoryMissionRepository) FindByPartnerID(ctx context.Context, partnerID uuid.UUID) ([]*entity.Mission, error) {
	return r.filter(func(m entity.Mission) bool { return m.IsAssignedTo(partnerID) }), nil
}

func (r *memoryMissionRepository) FindNearbyPending(ctx context.Context, center valueobject.Point, radiusM, limit int) ([]*entity.Mission, error) {
	deg := valueobject.RadiusDegrees(radiusM)
	out := r.filter(func(m entity.Mission) bool {
		dLat := m.Pickup.Point.Lat - center.Lat
		dLng := m.Pickup.Point.Lng - center.Lng
		return m.Status == valueobject.MissionStatusPending && dLat*dLat+dLng*dLng <= deg*deg
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryMissionRepository) List(ctx context.Context, filter repository.MissionFilter) ([]*entity.Mission, error) {
	return r.filter(func(m entity.Mission) bool {
		return filter.Status == "" || string(m.Status) == filter.Status
	}), nil
}

func (r *memoryMissionRepository) SetQRCode(ctx context.Context, id uuid.UUID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qrCodes[id] = code
	m := r.missions[id]
	m.SetQRCode(code)
	r.missions[id] = m
	return nil
}

func (r *memoryMissionRepository) Transition(ctx context.Context, m *entity.Mission, from valueobject.MissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(m, from)
}

func (r *memoryMissionRepository) transitionLocked(m *entity.Mission, from valueobject.MissionStatus) error {
	stored, ok := r.missions[m.ID]
	if !ok || stored.Status != from {
		return repository.ErrStaleMission
	}
	stored.Status = m.Status
	stored.PartnerID = m.PartnerID
	stored.CompletedAt = m.CompletedAt
	r.missions[m.ID] = stored
	return nil
}

func (r *memoryMissionRepository) Deliver(ctx context.Context, m *entity.Mission, s *entity.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(m, valueobject.MissionStatusInTransit); err != nil {
		return err
	}
	r.settlements[s.ID] = *s
	return nil
}

func (r *memoryMissionRepository) UpdateSettlement(ctx context.Context, s *entity.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.settlements[s.ID] = *s
	return nil
}

func (r *memoryMissionRepository) settlementFor(missionID uuid.UUID) (entity.Settlement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settlements {
		if s.MissionID == missionID {
			return s, true
		}
	}
	return entity.Settlement{}, false
}

func (r *memoryMissionRepository) filter(keep func(entity.Mission) bool) []*entity.Mission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Mission
	for _, m := range r.missions {
		if keep(m) {
			m := m
			out = append(out, &m)
		}
	}
	return out
}

type recordedNotification struct {
	UserID uuid.UUID
	Kind   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, kind, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedNotification{UserID: userID, Kind: kind})
	return n.err
}

func (n *recordingNotifier) all() []recordedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNotification(nil), n.sent...)
}

type stubAccounts map[uuid.UUID]string

func (s stubAccounts) PaymentAccountID(ctx context.Context, userID uuid.UUID) (string, error) {
	return s[userID], nil
}

type stubTransfers struct {
	calls []repository.TransferRequest
	err   error
}

func (s *stubTransfers) CreateTransfer(ctx context.Context, req repository.TransferRequest) (string, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return "", s.err
	}
	return "tr_test_1", nil
}

type stubQR struct{ err error }

func (q stubQR) Issue(id uuid.UUID) (string, string, error) {
	if q.err != nil {
		return "", "", q.err
	}
	return id.String() + ":token", "data:image/png;base64,AAAA", nil
}

type countingObserver struct {
	mu              sync.Mutex
	transitions     map[valueobject.MissionStatus]int
	transferFailure int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{transitions: make(map[valueobject.MissionStatus]int)}
}

func (o *countingObserver) MissionTransitioned(to valueobject.MissionStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions[to]++
}

func (o *countingObserver) TransferFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transferFailure++
}

var errGateway = errors.New("gateway unavailable")
