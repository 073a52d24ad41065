package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ecorelais/delivery-backend/internal/http/middleware"
	"github.com/ecorelais/delivery-backend/internal/interface/http/response"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/ws"
)

// WSHandler открывает WebSocket для push-уведомлений.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.AccessParser
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, tokens middleware.AccessParser, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=... Браузер не передаёт заголовки при апгрейде,
// поэтому access токен приходит в query.
func (h *WSHandler) Handle(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}
	claims, err := h.tokens.ParseAccess(raw)
	if err != nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой.
		logger.Log.WithError(err).Debug("ws: апгрейд не удался")
		return
	}

	if err := ws.NewClient(conn, h.hub, claims.UserID).Serve(); err != nil {
		logger.Log.WithError(err).WithField("user_id", claims.UserID).Debug("ws: соединение закрыто")
	}
}
