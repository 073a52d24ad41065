package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecorelais/delivery-backend/internal/config"
	"github.com/ecorelais/delivery-backend/internal/http/handlers"
	"github.com/ecorelais/delivery-backend/internal/http/middleware"
	"github.com/ecorelais/delivery-backend/internal/interface/http/handler"
	"github.com/ecorelais/delivery-backend/internal/metrics"
	"github.com/ecorelais/delivery-backend/internal/models"
)

// Handlers: все HTTP обработчики приложения. Dispute может быть nil.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Verification *handlers.VerificationHandler
	Profile      *handlers.ProfileHandler
	Mission      *handler.MissionHandler
	Payment      *handlers.PaymentHandler
	Notification *handlers.NotificationHandler
	Admin        *handlers.AdminHandler
	Dispute      *handlers.DisputeHandler
	Health       *handlers.HealthHandler
	WS           *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessParser, m *metrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if m != nil {
		r.Use(middleware.Metrics(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.Use(middleware.ErrorHandler(cfg.IsProduction()))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	var rejects middleware.RejectCounter
	if m != nil {
		rejects = m
	}
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod, rejects))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/verify-email", h.Verification.VerifyEmail)
	}

	// WebSocket проверяет токен из query сам.
	api.GET("/ws", h.WS.Handle)

	// Приём событий платёжного провайдера, защищён подписью.
	api.POST("/payments/webhook", h.Payment.Webhook)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	protected.POST("/auth/logout", h.Auth.Logout)

	users := protected.Group("/users")
	{
		users.GET("/profile", h.Profile.Get)
		users.PUT("/profile", h.Profile.Update)
		users.PUT("/payment-account", middleware.RequireRole(models.RolePartner), h.Profile.LinkPaymentAccount)
	}

	partnerOnly := middleware.RequireRole(models.RolePartner)
	missions := protected.Group("/missions")
	{
		missions.POST("", middleware.RequireRole(models.RoleClient), h.Mission.Create)
		missions.GET("", h.Mission.List)
		missions.GET("/:id", middleware.UUIDValidator("id"), h.Mission.Get)
		missions.PUT("/:id/accept", partnerOnly, middleware.UUIDValidator("id"), h.Mission.Accept)
		missions.PUT("/:id/collect", partnerOnly, middleware.UUIDValidator("id"), h.Mission.Collect)
		missions.PUT("/:id/status", partnerOnly, middleware.UUIDValidator("id"), h.Mission.UpdateStatus)
		missions.PUT("/:id/deliver", partnerOnly, middleware.UUIDValidator("id"), h.Mission.Deliver)
		missions.PUT("/:id/cancel", middleware.UUIDValidator("id"), h.Mission.Cancel)
	}

	payments := protected.Group("/payments")
	{
		payments.POST("/create-checkout", middleware.RequireRole(models.RoleClient), h.Payment.CreateCheckout)
		payments.GET("/earnings", partnerOnly, h.Payment.Earnings)
		payments.POST("/payout", partnerOnly, h.Payment.Payout)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notification.List)
		notifications.GET("/unread-count", h.Notification.UnreadCount)
		notifications.PUT("/read-all", h.Notification.MarkAllRead)
		notifications.PUT("/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkRead)
		notifications.POST("/send", middleware.RequireRole(models.RoleAdmin), h.Notification.Send)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", h.Admin.Stats)
		admin.GET("/users", h.Admin.Users)
		admin.GET("/missions", h.Admin.Missions)
		admin.PUT("/users/:id/verify", middleware.UUIDValidator("id"), h.Admin.VerifyUser)
	}

	if cfg.DisputesEnabled && h.Dispute != nil {
		protected.POST("/disputes", middleware.RequireRole(models.RoleClient, models.RolePartner), h.Dispute.Create)
		admin.GET("/disputes", h.Dispute.List)
		admin.PUT("/disputes/:id/review", middleware.UUIDValidator("id"), h.Dispute.Review)
		admin.PUT("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Dispute.Resolve)
	}

	return r
}
