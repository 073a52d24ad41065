package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db  Pinger
	hub interface{ ConnectedUsers() int }
}

func NewHealthHandler(db Pinger, hub interface{ ConnectedUsers() int }) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	WSUsers   int               `json:"ws_users"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Timestamp: time.Now().UTC(), Checks: map[string]string{}}
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Checks["database"] = "healthy"
	}
	if h.hub != nil {
		resp.WSUsers = h.hub.ConnectedUsers()
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
