package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/config"
	"github.com/stemsi/learning-portal/internal/handler"
	"github.com/stemsi/learning-portal/internal/metrics"
	"github.com/stemsi/learning-portal/internal/middleware"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/session"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Dashboard    *handler.DashboardHandler
	Assessment   *handler.AssessmentHandler
	Profile      *handler.ProfileHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
	System       *handler.SystemHandler
}

// Deps are the shared pieces the middlewares need.
type Deps struct {
	Store        session.Store
	Metrics      *metrics.Metrics
	LoginLimiter *middleware.RateLimiter
	Log          zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, deps Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Only the origins listed in config get CORS headers. Without a list the
	// portal is same-origin only and browsers keep other sites out.
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
		corsConfig.ExposeHeaders = []string{"X-Request-ID"}
		corsConfig.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsConfig))
	}

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.SecurityHeaders(cfg.AllowedHosts))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", deps.Metrics.Handler())
	}
	router.Use(middleware.Brotli())

	// Browser shell, cached for ten minutes.
	if cfg.StaticDir != "" {
		shell := router.Group("/app")
		shell.Use(middleware.CacheControl(600))
		{
			shell.Static("/", cfg.StaticDir)
		}
	}

	router.GET("/health", handlers.System.Health)

	requireSession := middleware.RequireSession(deps.Store, deps.Log)
	sameOrigin := middleware.OriginGuard(cfg.AllowedOrigins, deps.Log)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(sameOrigin, middleware.NoStore())
	{
		if deps.LoginLimiter != nil {
			auth.POST("/login", deps.LoginLimiter.Middleware(), handlers.Auth.Login)
		} else {
			auth.POST("/login", handlers.Auth.Login)
		}
		auth.GET("/session", handlers.Auth.Session)
		auth.POST("/logout", requireSession, handlers.Auth.Logout)
	}

	// ─── 2. Student Group (Signed-in Session) ──────────────────────────
	api := router.Group("/api/v1")
	api.Use(sameOrigin, middleware.NoStore(), requireSession)
	{
		api.GET("/dashboard", handlers.Dashboard.GetDashboard)
		api.GET("/career-path", handlers.Dashboard.GetCareerPath)

		assessments := api.Group("/assessments")
		{
			assessments.GET("", handlers.Assessment.ListAssessments)
			assessments.GET("/:id", handlers.Assessment.GetAssessment)
			assessments.POST("/:id/attempts", handlers.Assessment.StartAttempt)
		}

		attempts := api.Group("/attempts")
		{
			attempts.GET("/:attempt_id", handlers.Assessment.GetAttempt)
			attempts.POST("/:attempt_id/actions", handlers.Assessment.AttemptAction)
			attempts.DELETE("/:attempt_id", handlers.Assessment.DiscardAttempt)
		}

		profile := api.Group("/profile")
		{
			profile.GET("", handlers.Profile.GetProfile)
			profile.POST("", handlers.Profile.CreateProfile)
			profile.PUT("", handlers.Profile.UpdateProfile)
			profile.GET("/completion-prompt", handlers.Profile.CompletionPrompt)
			profile.POST("/permission-requests", handlers.Profile.RequestPermission)
			profile.POST("/fields/:field/edit", handlers.Profile.StartEdit)
			profile.DELETE("/fields/:field/edit", handlers.Profile.CancelEdit)
			profile.PUT("/fields/:field", handlers.Profile.SaveField)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", handlers.Notification.ListNotifications)
			notifications.GET("/unread-count", handlers.Notification.UnreadCount)
			notifications.POST("/open", handlers.Notification.OpenInbox)
			notifications.POST("/close", handlers.Notification.CloseInbox)
			notifications.POST("/read-all", handlers.Notification.MarkAllRead)
			notifications.POST("/:id/read", handlers.Notification.MarkRead)
		}
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(sameOrigin, requireSession)
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
