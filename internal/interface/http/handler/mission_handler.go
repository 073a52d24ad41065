package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/interface/http/dto"
	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/storage"
	"github.com/ecorelais/delivery-backend/internal/usecase/mission"
)

// PhotoStore сохраняет фото посылки.
type PhotoStore interface {
	Save(ctx context.Context, ownerID uuid.UUID, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, relativePath string) error
	URL(relativePath string) string
	MaxUploadBytes() int64
}

// MissionUseCases: сценарии жизненного цикла миссии.
type MissionUseCases struct {
	Create       *mission.CreateMissionUseCase
	Get          *mission.GetMissionUseCase
	List         *mission.ListMissionsUseCase
	Accept       *mission.AcceptMissionUseCase
	Collect      *mission.CollectMissionUseCase
	UpdateStatus *mission.UpdateMissionStatusUseCase
	Deliver      *mission.DeliverMissionUseCase
	Cancel       *mission.CancelMissionUseCase
}

type MissionHandler struct {
	uc     MissionUseCases
	photos PhotoStore
}

func NewMissionHandler(uc MissionUseCases, photos PhotoStore) *MissionHandler {
	return &MissionHandler{uc: uc, photos: photos}
}

// Create обрабатывает POST /api/missions (JSON или multipart с полем photo).
func (h *MissionHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateMissionRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.Validation("некорректные данные миссии"))
		return
	}

	photoURL, photoPath, err := h.savePhoto(c, actor.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	m, err := h.uc.Create.Execute(c.Request.Context(), actor.ID, req.Draft(photoURL))
	if err != nil {
		if photoPath != "" {
			if delErr := h.photos.Delete(context.WithoutCancel(c.Request.Context()), photoPath); delErr != nil {
				logger.Log.WithError(delErr).WithField("path", photoPath).Warn("не удалось удалить фото посылки")
			}
		}
		_ = c.Error(err)
		return
	}

	response.Created(c, gin.H{"mission": dto.ToMissionResponse(m)})
}

// savePhoto сохраняет необязательное фото. Без файла возвращает nil.
func (h *MissionHandler) savePhoto(c *gin.Context, ownerID uuid.UUID) (*string, string, error) {
	if h.photos == nil {
		return nil, "", nil
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", apperror.Validation("не удалось прочитать фото")
	}
	if fh.Size > h.photos.MaxUploadBytes() {
		return nil, "", apperror.Validation("размер фото превышает лимит")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось открыть фото")
	}
	defer f.Close()

	rel, _, err := h.photos.Save(c.Request.Context(), ownerID, f)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return nil, "", apperror.Validation("разрешены только изображения jpeg, png, webp")
	case errors.Is(err, storage.ErrTooLarge):
		return nil, "", apperror.Validation("размер фото превышает лимит")
	case err != nil:
		return nil, "", err
	}

	url := h.photos.URL(rel)
	return &url, rel, nil
}

// List обрабатывает GET /api/missions?lat=&lng=&radius=.
func (h *MissionHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	near, err := parsePoint(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	missions, err := h.uc.List.Execute(c.Request.Context(), actor, mission.ListQuery{
		Near:    near,
		RadiusM: parseIntQuery(c, "radius", 0),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, gin.H{"missions": dto.ToMissionResponses(missions)})
}

// Get обрабатывает GET /api/missions/:id.
func (h *MissionHandler) Get(c *gin.Context) {
	h.withMission(c, func(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
		return h.uc.Get.Execute(ctx, id, actor)
	})
}

func (h *MissionHandler) Accept(c *gin.Context) {
	h.withMission(c, func(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
		return h.uc.Accept.Execute(ctx, id, actor.ID)
	})
}

func (h *MissionHandler) Collect(c *gin.Context) {
	var req dto.CollectMissionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperror.Validation("некорректные данные запроса"))
			return
		}
	}
	h.withMission(c, func(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
		return h.uc.Collect.Execute(ctx, id, actor.ID, req.QRPayload)
	})
}

func (h *MissionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation("статус обязателен"))
		return
	}
	h.withMission(c, func(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
		return h.uc.UpdateStatus.Execute(ctx, id, actor.ID, req.Status)
	})
}

func (h *MissionHandler) Deliver(c *gin.Context) {
	h.withMission(c, func(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
		res, err := h.uc.Deliver.Execute(ctx, id, actor.ID)
		if err != nil {
			return nil, err
		}
		return res.Mission, nil
	})
}

func (h *MissionHandler) Cancel(c *gin.Context) {
	h.withMission(c, func(ctx context.Context, id uuid.UUID, actor entity.Actor) (*entity.Mission, error) {
		return h.uc.Cancel.Execute(ctx, id, actor)
	})
}

// withMission разбирает :id и пользователя, выполняет действие и отдаёт миссию.
func (h *MissionHandler) withMission(c *gin.Context, action func(context.Context, uuid.UUID, entity.Actor) (*entity.Mission, error)) {
	actor, ok := currentActor(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.Validation("некорректный ID миссии"))
		return
	}

	m, err := action(c.Request.Context(), missionID, actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, gin.H{"mission": dto.ToMissionResponse(m)})
}
