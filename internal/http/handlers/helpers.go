package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/domain/entity"
	"github.com/ecorelais/delivery-backend/internal/http/middleware"
	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/pkg/apperror"
	"github.com/ecorelais/delivery-backend/internal/service"
)

// currentActor извлекает пользователя из контекста. Если его нет, отвечает 401.
func currentActor(c *gin.Context) (entity.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
	}
	return actor, ok
}

// fail передаёт ошибку в ErrorHandler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func invalid(c *gin.Context, message string) {
	fail(c, apperror.Validation(message))
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		invalid(c, "параметр "+name+" должен быть валидным UUID")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{UserAgent: c.GetHeader("User-Agent"), IP: c.ClientIP()}
}
