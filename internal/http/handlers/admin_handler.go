package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ecorelais/delivery-backend/internal/interface/http/dto"
	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(a *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: a}
}

// Stats обрабатывает GET /api/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"stats": stats})
}

// Users обрабатывает GET /api/admin/users?role=&page=&limit=.
func (h *AdminHandler) Users(c *gin.Context) {
	page, err := h.admin.Users(c.Request.Context(), c.Query("role"), intQuery(c, "page", 1), intQuery(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"data":  page.Data,
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// Missions обрабатывает GET /api/admin/missions?status=.
func (h *AdminHandler) Missions(c *gin.Context) {
	missions, err := h.admin.Missions(c.Request.Context(), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"missions": dto.ToMissionResponses(missions)})
}

// VerifyUser обрабатывает PUT /api/admin/users/:id/verify.
func (h *AdminHandler) VerifyUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.VerifyUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"message": "пользователь подтверждён"})
}
