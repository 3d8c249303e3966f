package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/config"
	"github.com/stemsi/learning-portal/internal/handler"
	"github.com/stemsi/learning-portal/internal/logger"
	"github.com/stemsi/learning-portal/internal/metrics"
	"github.com/stemsi/learning-portal/internal/middleware"
	"github.com/stemsi/learning-portal/internal/router"
	"github.com/stemsi/learning-portal/internal/service"
	"github.com/stemsi/learning-portal/internal/session"
	"github.com/stemsi/learning-portal/internal/validator"
	"github.com/stemsi/learning-portal/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("backend", cfg.BackendURL).
		Str("session_store", cfg.SessionStore).
		Msg("Starting learning portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Session Store ────────────────────────────────────────────
	store, closeStore, err := session.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer closeStore()

	// ─── Backend Client ────────────────────────────────────────────────
	m := metrics.New()
	api := client.New(cfg.BackendURL, store,
		client.WithTimeout(cfg.BackendTimeout),
		client.WithLogger(log),
		client.WithObserver(m.ObserveBackend),
	)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(api, store, log)
	dashboardService := service.NewDashboardService(api)
	careerPathService := service.NewCareerPathService(api)
	assessmentService := service.NewAssessmentService(api, m, log)
	profileService := service.NewProfileService(api, store, log)
	notificationService := service.NewNotificationService(api, m, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, log),
		Dashboard:    handler.NewDashboardHandler(dashboardService, careerPathService, log),
		Assessment:   handler.NewAssessmentHandler(assessmentService, log),
		Profile:      handler.NewProfileHandler(profileService, log),
		Notification: handler.NewNotificationHandler(notificationService, log),
		WS:           handler.NewWSHandler(assessmentService, log, cfg.AllowedOrigins),
		System:       handler.NewSystemHandler(cfg.BackendURL, cfg.SessionStore, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	notificationWorker := worker.NewNotificationWorker(notificationService, cfg.NotificationPollInterval, log)
	go notificationWorker.Start(workerCtx)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, time.Minute)
	go loginLimiter.Run(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, router.Deps{
		Store:        store,
		Metrics:      m,
		LoginLimiter: loginLimiter,
		Log:          log,
	}, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the poller and every running attempt clock.
	workerCancel()
	assessmentService.Shutdown()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
