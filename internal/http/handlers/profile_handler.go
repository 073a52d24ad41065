package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/models"
	"github.com/ecorelais/delivery-backend/internal/service"
)

// ProfileHandler отвечает за профиль текущего пользователя.
type ProfileHandler struct {
	users *service.UserService
}

func NewProfileHandler(users *service.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Get обрабатывает GET /api/users/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.users.Profile(c.Request.Context(), actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"user": user.View()})
}

// Update обрабатывает PUT /api/users/profile. Отсутствующие поля не меняются.
func (h *ProfileHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		FirstName  *string  `json:"first_name"`
		LastName   *string  `json:"last_name"`
		Phone      *string  `json:"phone"`
		AddressLat *float64 `json:"address_lat"`
		AddressLng *float64 `json:"address_lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "некорректные данные профиля")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), actor.ID, models.ProfileUpdate{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		AddressLat: req.AddressLat,
		AddressLng: req.AddressLng,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"user": user.View()})
}

// LinkPaymentAccount обрабатывает PUT /api/users/payment-account.
func (h *ProfileHandler) LinkPaymentAccount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		AccountID string `json:"stripe_account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "stripe_account_id обязателен")
		return
	}

	if err := h.users.LinkPaymentAccount(c.Request.Context(), actor.ID, actor.Role.String(), req.AccountID); err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"message": "платёжный аккаунт привязан"})
}
