package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/handler"
	"github.com/Priyanshu1283/quizzer-backend/internal/middleware"
	"github.com/Priyanshu1283/quizzer-backend/internal/response"
	"github.com/Priyanshu1283/quizzer-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Attempt *handler.AttemptHandler
	Reward  *handler.RewardHandler
	Admin   *handler.AdminHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.GetProfile)
	}

	// ─── 2. Catalog Group (Public browse) ──────────────────────────────
	catalog := router.Group("/api/v1")
	{
		catalog.GET("/series", handlers.Catalog.ListSeries)
		catalog.GET("/series/:series_id/tests", handlers.Catalog.ListTests)
		catalog.GET("/tests/:test_id", handlers.Catalog.GetTestDetails)
		catalog.GET("/tests/:test_id/leaderboard", handlers.Catalog.GetLeaderboard)
	}

	// ─── 3. Taker Group (JWT + Active Session) ─────────────────────────
	taker := router.Group("/api/v1")
	taker.Use(
		middleware.RequireAuth(authService),
		middleware.CheckActiveSession(authService),
	)
	{
		taker.GET("/tests/:test_id/paper", handlers.Catalog.GetTestPaper)

		taker.POST("/attempts/start", handlers.Attempt.StartAttempt)
		taker.POST("/attempts/:attempt_id/sections/:section/responses", handlers.Attempt.SubmitSection)
		taker.POST("/attempts/:attempt_id/submit", handlers.Attempt.SubmitTest)
		taker.GET("/attempts/:attempt_id/state", handlers.Attempt.GetState)
		taker.GET("/attempts/:attempt_id/result", handlers.Attempt.GetResult)

		taker.GET("/rewards/me", handlers.Reward.ListMine)
		taker.POST("/rewards/:reward_id/claim", handlers.Reward.Claim)
	}

	// ─── 4. WebSocket Group (Query-token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 5. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdmin(authService))
	{
		adminAPI.GET("/overview", handlers.Admin.GetOverview)
		adminAPI.POST("/tests/:test_id/rewards/generate", handlers.Reward.Generate)
		adminAPI.POST("/rewards/:reward_id/distribute", handlers.Reward.Distribute)
	}

	return router
}
