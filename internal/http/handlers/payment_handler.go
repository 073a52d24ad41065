package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/service"
)

// maxWebhookBytes: предел тела webhook, как у Stripe.
const maxWebhookBytes = 65536

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(p *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: p}
}

// CreateCheckout обрабатывает POST /api/payments/create-checkout.
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		MissionID  uuid.UUID `json:"mission_id" binding:"required"`
		SuccessURL string    `json:"success_url"`
		CancelURL  string    `json:"cancel_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "mission_id обязателен")
		return
	}

	session, err := h.payments.CreateCheckout(c.Request.Context(), actor, service.CheckoutInput{
		MissionID:  req.MissionID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"url": session.URL, "session_id": session.ID})
}

// Webhook обрабатывает POST /api/payments/webhook. Подпись проверяется по сырому телу.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		invalid(c, "не удалось прочитать тело webhook")
		return
	}

	event, err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"received": true, "type": event.Type})
}

// Earnings обрабатывает GET /api/payments/earnings.
func (h *PaymentHandler) Earnings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	res, err := h.payments.Earnings(c.Request.Context(), actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"total_earnings": res.Total, "transactions": res.Transactions})
}

// Payout обрабатывает POST /api/payments/payout.
func (h *PaymentHandler) Payout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	res, err := h.payments.Payout(c.Request.Context(), actor.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, gin.H{"payout_id": res.PayoutID, "amount": res.Amount})
}
