package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ecorelais/delivery-backend/internal/config"
	"github.com/ecorelais/delivery-backend/internal/db"
	domainrepo "github.com/ecorelais/delivery-backend/internal/domain/repository"
	"github.com/ecorelais/delivery-backend/internal/goroutine"
	httpHandlers "github.com/ecorelais/delivery-backend/internal/http/handlers"
	httpRouter "github.com/ecorelais/delivery-backend/internal/http/router"
	"github.com/ecorelais/delivery-backend/internal/infrastructure/payment"
	"github.com/ecorelais/delivery-backend/internal/infrastructure/persistence"
	"github.com/ecorelais/delivery-backend/internal/infrastructure/qr"
	"github.com/ecorelais/delivery-backend/internal/interface/http/handler"
	"github.com/ecorelais/delivery-backend/internal/jobs"
	"github.com/ecorelais/delivery-backend/internal/logger"
	"github.com/ecorelais/delivery-backend/internal/metrics"
	"github.com/ecorelais/delivery-backend/internal/repository"
	"github.com/ecorelais/delivery-backend/internal/service"
	"github.com/ecorelais/delivery-backend/internal/storage"
	"github.com/ecorelais/delivery-backend/internal/usecase/mission"
	"github.com/ecorelais/delivery-backend/internal/ws"
)

const (
	shutdownTimeout   = 10 * time.Second
	cachePurgeEvery   = time.Minute
	jobTimeout        = 2 * time.Minute
	reconcileGrace    = time.Hour
	readHeaderTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.IsProduction() {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	if err := run(ctx, cfg); err != nil {
		logger.Log.WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
	logger.Log.Info("main: сервер остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
	if err != nil {
		return err
	}
	defer safeClose(dbConn)

	applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Log.WithField("migrations", applied).Info("main: миграции применены")
	}

	photos, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.PublicBaseURL, cfg.MaxUploadSizeMB)
	if err != nil {
		return err
	}

	appMetrics, err := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	verificationRepo := repository.NewVerificationRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	missionRepo := persistence.NewMissionRepositoryAdapter(dbConn)

	var gateway payment.Gateway = payment.Disabled{}
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	} else {
		logger.Log.Warn("main: STRIPE_SECRET_KEY не задан, платежи отключены")
	}
	var transfers domainrepo.PaymentTransfers
	if gateway.Enabled() {
		transfers = gateway
	}

	hub := ws.NewHub()
	if err := metrics.TrackConnectedUsers(prometheus.DefaultRegisterer, hub.ConnectedUsers); err != nil {
		return err
	}

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailer := service.NewLogMailer(cfg.Mail.From)
	cache := service.NewCacheService()

	verificationService := service.NewVerificationService(verificationRepo, mailer, cfg.VerifyTokenTTL, cfg.Mail.VerifyBaseURL)
	authService := service.NewAuthService(userRepo, tokenManager, verificationService)
	userService := service.NewUserService(userRepo)
	notificationService := service.NewNotificationService(notificationRepo, hub, userRepo, mailer)
	paymentService := service.NewPaymentService(paymentRepo, missionRepo, userRepo, userRepo, gateway, cfg.Stripe.DashboardURL)
	adminService := service.NewAdminService(reportRepo, userRepo, missionRepo, cache)

	// Сценарии миссий.
	runner := goroutine.NewRecoveryHandler(logger.Log)
	events := mission.NewEvents(notificationService, runner, appMetrics)
	missionHandler := handler.NewMissionHandler(handler.MissionUseCases{
		Create:       mission.NewCreateMissionUseCase(missionRepo, qr.NewIssuer(), events),
		Get:          mission.NewGetMissionUseCase(missionRepo),
		List:         mission.NewListMissionsUseCase(missionRepo),
		Accept:       mission.NewAcceptMissionUseCase(missionRepo, events),
		Collect:      mission.NewCollectMissionUseCase(missionRepo, events),
		UpdateStatus: mission.NewUpdateMissionStatusUseCase(missionRepo, events),
		Deliver:      mission.NewDeliverMissionUseCase(missionRepo, userRepo, transfers, events),
		Cancel:       mission.NewCancelMissionUseCase(missionRepo, events),
	}, photos)

	handlers := httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService),
		Verification: httpHandlers.NewVerificationHandler(verificationService),
		Profile:      httpHandlers.NewProfileHandler(userService),
		Mission:      missionHandler,
		Payment:      httpHandlers.NewPaymentHandler(paymentService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		Admin:        httpHandlers.NewAdminHandler(adminService),
		Health:       httpHandlers.NewHealthHandler(dbConn, hub),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}
	if cfg.DisputesEnabled {
		handlers.Dispute = httpHandlers.NewDisputeHandler(service.NewDisputeService(disputeRepo, missionRepo, notificationService))
	}

	// Фоновые задачи.
	scheduler := jobs.NewManager(jobTimeout)
	if err := scheduler.Schedule(cfg.Jobs.CleanupSchedule, jobs.NewCleanupJob(verificationRepo, userRepo)); err != nil {
		return err
	}
	if err := scheduler.Schedule(cfg.Jobs.ReconciliationSchedule, jobs.NewReconciliationJob(paymentRepo, reconcileGrace)); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpRouter.SetupRouter(cfg, handlers, tokenManager, appMetrics),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return cache.Run(gctx, cachePurgeEvery) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		logger.Log.WithFields(logrus.Fields{
			"port":     cfg.HTTPPort,
			"env":      cfg.Env,
			"disputes": cfg.DisputesEnabled,
			"payments": gateway.Enabled(),
		}).Info("main: HTTP сервер запущен")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
