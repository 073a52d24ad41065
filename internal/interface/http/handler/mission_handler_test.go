package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
	"github.com/ecorelais/delivery-backend/internal/goroutine"
	"github.com/ecorelais/delivery-backend/internal/http/middleware"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/usecase/mission"
)

type memoryMissions struct {
	mu       sync.Mutex
	missions map[uuid.UUID]entity.Mission
}

func (r *memoryMissions) Create(_ context.Context, m *entity.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missions[m.ID] = *m
	return nil
}

func (r *memoryMissions) FindByID(_ context.Context, id uuid.UUID) (*entity.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.missions[id]
	if !ok {
		return nil, apperror.ErrMissionNotFound
	}
	return &m, nil
}

func (r *memoryMissions) FindByClientID(_ context.Context, clientID uuid.UUID) ([]*entity.Mission, error) {
	return r.where(func(m entity.Mission) bool { return m.ClientID == clientID }), nil
}

func (r *memoryMissions) FindByPartnerID(_ context.Context, partnerID uuid.UUID) ([]*entity.Mission, error) {
	return r.where(func(m entity.Mission) bool { return m.IsAssignedTo(partnerID) }), nil
}

func (r *memoryMissions) FindNearbyPending(_ context.Context, _ valueobject.Point, _, _ int) ([]*entity.Mission, error) {
	return r.where(func(m entity.Mission) bool { return m.Status == valueobject.MissionStatusPending }), nil
}

func (r *memoryMissions) List(_ context.Context, _ repository.MissionFilter) ([]*entity.Mission, error) {
	return r.where(func(entity.Mission) bool { return true }), nil
}

func (r *memoryMissions) SetQRCode(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *memoryMissions) Transition(_ context.Context, m *entity.Mission, from valueobject.MissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.missions[m.ID]
	if !ok || stored.Status != from {
		return repository.ErrStaleMission
	}
	r.missions[m.ID] = *m
	return nil
}

func (r *memoryMissions) Deliver(ctx context.Context, m *entity.Mission, _ *entity.Settlement) error {
	return r.Transition(ctx, m, valueobject.MissionStatusInTransit)
}

func (r *memoryMissions) UpdateSettlement(_ context.Context, _ *entity.Settlement) error { return nil }

func (r *memoryMissions) where(keep func(entity.Mission) bool) []*entity.Mission {
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

type noAccounts struct{}

func (noAccounts) PaymentAccountID(context.Context, uuid.UUID) (string, error) { return "", nil }

type noTransfers struct{}

func (noTransfers) CreateTransfer(context.Context, repository.TransferRequest) (string, error) {
	return "", nil
}

type memoryPhotos struct {
	saved   int
	deleted int
}

func (p *memoryPhotos) Save(_ context.Context, ownerID uuid.UUID, r io.Reader) (string, int64, error) {
	n, err := io.Copy(io.Discard, r)
	p.saved++
	return ownerID.String() + "/photo.png", n, err
}

func (p *memoryPhotos) Delete(context.Context, string) error { p.deleted++; return nil }

func (p *memoryPhotos) URL(rel string) string { return "http://localhost:8080/media/" + rel }

func (p *memoryPhotos) MaxUploadBytes() int64 { return 1 << 20 }

type fixture struct {
	router *gin.Engine
	repo   *memoryMissions
	photos *memoryPhotos
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memoryMissions{missions: map[uuid.UUID]entity.Mission{}}
	photos := &memoryPhotos{}
	events := mission.NewEvents(nil, goroutine.Inline{}, nil)
	h := NewMissionHandler(MissionUseCases{
		Create:       mission.NewCreateMissionUseCase(repo, nil, events),
		Get:          mission.NewGetMissionUseCase(repo),
		List:         mission.NewListMissionsUseCase(repo),
		Accept:       mission.NewAcceptMissionUseCase(repo, events),
		Collect:      mission.NewCollectMissionUseCase(repo, events),
		UpdateStatus: mission.NewUpdateMissionStatusUseCase(repo, events),
		Deliver:      mission.NewDeliverMissionUseCase(repo, noAccounts{}, noTransfers{}, events),
		Cancel:       mission.NewCancelMissionUseCase(repo, events),
	}, photos)

	r := gin.New()
	r.Use(middleware.ErrorHandler(true))
	// Тестовая авторизация: пользователь задаётся заголовками.
	r.Use(func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-User")); err == nil {
			c.Set(middleware.ContextUserIDKey, id)
			c.Set(middleware.ContextRoleKey, c.GetHeader("X-Role"))
		}
	})
	r.POST("/missions", h.Create)
	r.GET("/missions", h.List)
	r.GET("/missions/:id", h.Get)
	r.PUT("/missions/:id/accept", h.Accept)
	r.PUT("/missions/:id/collect", h.Collect)
	r.PUT("/missions/:id/status", h.UpdateStatus)
	r.PUT("/missions/:id/deliver", h.Deliver)
	r.PUT("/missions/:id/cancel", h.Cancel)

	return &fixture{router: r, repo: repo, photos: photos}
}

func (f *fixture) do(t *testing.T, method, path string, user uuid.UUID, role string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != uuid.Nil {
		req.Header.Set("X-User", user.String())
		req.Header.Set("X-Role", role)
	}
	return f.send(t, req)
}

func (f *fixture) send(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func missionPayload() map[string]any {
	return map[string]any{
		"package_title":    "Livres",
		"package_size":     "medium",
		"pickup_address":   "1 rue de Rivoli, Paris",
		"pickup_lat":       48.8566,
		"pickup_lng":       2.3522,
		"delivery_address": "10 avenue de l'Opéra, Paris",
		"delivery_lat":     48.8666,
		"delivery_lng":     2.3333,
		"pickup_time_slot": "14:00-16:00",
		"price":            1,
	}
}

func createdMissionID(t *testing.T, body map[string]any) uuid.UUID {
	t.Helper()
	m, ok := body["mission"].(map[string]any)
	require.True(t, ok)
	id, err := uuid.Parse(m["id"].(string))
	require.NoError(t, err)
	return id
}

func TestMissionHandler_CreateIgnoresClientPrice(t *testing.T) {
	f := newFixture(t)
	client := uuid.New()

	w, body := f.do(t, http.MethodPost, "/missions", client, "client", missionPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	m := body["mission"].(map[string]any)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "pending", m["status"])
	assert.Equal(t, 5.0, m["price"])
	assert.Equal(t, 1.0, m["commission"])
	assert.Nil(t, m["partner_id"])
}

func TestMissionHandler_CreateValidation(t *testing.T) {
	f := newFixture(t)
	payload := missionPayload()
	payload["package_size"] = "huge"

	w, body := f.do(t, http.MethodPost, "/missions", uuid.New(), "client", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestMissionHandler_CreateRequiresCoordinates(t *testing.T) {
	for _, field := range []string{"pickup_lat", "pickup_lng", "delivery_lat", "delivery_lng"} {
		t.Run(field, func(t *testing.T) {
			f := newFixture(t)
			payload := missionPayload()
			delete(payload, field)

			w, body := f.do(t, http.MethodPost, "/missions", uuid.New(), "client", payload)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
		})
	}
}

func TestMissionHandler_CreateAcceptsZeroCoordinate(t *testing.T) {
	f := newFixture(t)
	payload := missionPayload()
	payload["pickup_lng"] = 0.0
	payload["delivery_lng"] = 0.0

	w, _ := f.do(t, http.MethodPost, "/missions", uuid.New(), "client", payload)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestMissionHandler_CreateMultipartWithPhoto(t *testing.T) {
	f := newFixture(t)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range map[string]string{
		"package_title":    "Vase",
		"package_size":     "small",
		"pickup_address":   "A",
		"pickup_lat":       "48.85",
		"pickup_lng":       "2.35",
		"delivery_address": "B",
		"delivery_lat":     "48.86",
		"delivery_lng":     "2.34",
		"pickup_time_slot": "09:00-10:00",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("photo", "vase.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	client := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/missions", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User", client.String())
	req.Header.Set("X-Role", "client")

	w, body := f.send(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	m := body["mission"].(map[string]any)
	assert.Equal(t, "http://localhost:8080/media/"+client.String()+"/photo.png", m["package_photo_url"])
	assert.Equal(t, 1, f.photos.saved)
}

func TestMissionHandler_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	client, partner := uuid.New(), uuid.New()

	_, body := f.do(t, http.MethodPost, "/missions", client, "client", missionPayload())
	id := createdMissionID(t, body)
	base := "/missions/" + id.String()

	w, _ := f.do(t, http.MethodPut, base+"/accept", partner, "partner", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = f.do(t, http.MethodPut, base+"/accept", uuid.New(), "partner", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", body["code"])

	w, _ = f.do(t, http.MethodPut, base+"/collect", partner, "partner", map[string]string{"qr_payload": id.String() + ":abc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = f.do(t, http.MethodPut, base+"/status", partner, "partner", map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	w, _ = f.do(t, http.MethodPut, base+"/status", partner, "partner", map[string]string{"status": "in_transit"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = f.do(t, http.MethodPut, base+"/deliver", partner, "partner", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := body["mission"].(map[string]any)
	assert.Equal(t, "delivered", m["status"])
	assert.NotNil(t, m["completed_at"])

	w, body = f.do(t, http.MethodPut, base+"/cancel", client, "client", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STATE_ERROR", body["code"])
}

func TestMissionHandler_GetAccess(t *testing.T) {
	f := newFixture(t)
	client := uuid.New()
	_, body := f.do(t, http.MethodPost, "/missions", client, "client", missionPayload())
	id := createdMissionID(t, body)

	w, _ := f.do(t, http.MethodGet, "/missions/"+id.String(), uuid.New(), "client", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodGet, "/missions/"+id.String(), uuid.New(), "admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/missions/"+uuid.NewString(), client, "client", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodGet, "/missions/not-a-uuid", client, "client", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissionHandler_List(t *testing.T) {
	f := newFixture(t)
	client := uuid.New()
	f.do(t, http.MethodPost, "/missions", client, "client", missionPayload())

	w, body := f.do(t, http.MethodGet, "/missions", client, "client", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["missions"], 1)

	w, body = f.do(t, http.MethodGet, "/missions?lat=48.85&lng=2.35&radius=200", uuid.New(), "partner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["missions"], 1)

	w, _ = f.do(t, http.MethodGet, "/missions?lat=123&lng=2.35", uuid.New(), "partner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodGet, "/missions", uuid.New(), "admin", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMissionHandler_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, http.MethodGet, "/missions", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
