package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/service"
)

type VerificationHandler struct {
	svc *service.VerificationService
}

func NewVerificationHandler(s *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{svc: s}
}

// VerifyEmail обрабатывает POST /api/auth/verify-email. Токен принимается из тела или query.
func (h *VerificationHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		req.Token = c.Query("token")
	}

	if _, err := h.svc.Verify(c.Request.Context(), req.Token); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"message": "email подтверждён"})
}
