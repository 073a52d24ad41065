package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/service"
)

// DisputeHandler регистрируется только при DISPUTES_ENABLED=true.
type DisputeHandler struct {
	disputes *service.DisputeService
}

func NewDisputeHandler(d *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: d}
}

// Create обрабатывает POST /api/disputes.
func (h *DisputeHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		MissionID uuid.UUID `json:"mission_id" binding:"required"`
		Reason    string    `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "mission_id и reason обязательны")
		return
	}

	d, err := h.disputes.Create(c.Request.Context(), actor, req.MissionID, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"dispute": d})
}

// List обрабатывает GET /api/admin/disputes?status=.
func (h *DisputeHandler) List(c *gin.Context) {
	items, err := h.disputes.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"disputes": items})
}

// Review обрабатывает PUT /api/admin/disputes/:id/review.
func (h *DisputeHandler) Review(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	d, err := h.disputes.Review(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"dispute": d})
}

// Resolve обрабатывает PUT /api/admin/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "некорректные данные запроса")
		return
	}

	d, err := h.disputes.Resolve(c.Request.Context(), actor.ID, id, req.Resolution)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"dispute": d})
}
