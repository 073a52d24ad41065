package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
}

func NewNotificationHandler(n *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: n}
}

// List обрабатывает GET /api/notifications?limit=&offset=&unread_only=.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.notifications.List(c.Request.Context(), actor.ID,
		intQuery(c, "limit", 0), intQuery(c, "offset", 0), c.Query("unread_only") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"notifications": items})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	n, err := h.notifications.UnreadCount(c.Request.Context(), actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"count": n})
}

// MarkRead обрабатывает PUT /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), actor.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"notification": n})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"updated": updated})
}

// Send обрабатывает POST /api/notifications/send (admin): user_id или user_ids.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req struct {
		UserID  *uuid.UUID  `json:"user_id"`
		UserIDs []uuid.UUID `json:"user_ids"`
		Type    string      `json:"type" binding:"required"`
		Message string      `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "type и message обязательны, идентификаторы должны быть UUID")
		return
	}

	ids := req.UserIDs
	if req.UserID != nil {
		ids = append(ids, *req.UserID)
	}

	created, err := h.notifications.Send(c.Request.Context(), service.SendInput{
		UserIDs: ids,
		Type:    req.Type,
		Message: req.Message,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"notifications": created})
}
