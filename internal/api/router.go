package api

import (
	"time"

	"nutrition-api/internal/api/handlers"
	"nutrition-api/internal/api/handlers/health"
	"nutrition-api/internal/api/middleware"
	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的處理器與中間件狀態
type Dependencies struct {
	Handler       *handlers.Handler
	Health        *health.Handler
	Authenticator middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Deduplicator  *middleware.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(monitoring.Middleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 維運路由不受限流與逾時影響
	router.GET("/health", deps.Health.HealthCheck)
	router.GET("/ready", deps.Health.ReadinessCheck)
	router.GET("/live", deps.Health.LivenessCheck)
	router.GET("/metrics", monitoring.Handler())

	api := router.Group("/api/v1")
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimit(deps.RateLimiter))
	}
	if deps.Deduplicator != nil {
		api.Use(middleware.Deduplication(deps.Deduplicator))
	}
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	h := deps.Handler
	requireAuth := middleware.RequireAuth(deps.Authenticator)
	optionalAuth := middleware.OptionalAuth(deps.Authenticator)
	{
		api.POST("/users", h.Register)
		api.POST("/login", h.Login)
		api.GET("/me", requireAuth, h.Me)

		favorites := api.Group("/favorites", requireAuth)
		{
			favorites.POST("", h.AddFavorite)
			favorites.GET("", h.ListFavorites)
			favorites.DELETE("/:id", h.DeleteFavorite)
		}

		diary := api.Group("/diary", requireAuth)
		{
			diary.POST("/meals", h.AddMeal)
			diary.GET("/:date", h.GetDiary)
		}

		negotiator := api.Group("/negotiator")
		{
			negotiator.POST("/negotiate", optionalAuth, h.Negotiate)
			negotiator.POST("/mood", h.AnalyzeMood)
		}

		nutrition := api.Group("/nutrition")
		{
			nutrition.POST("/analyze", h.AnalyzeNutrition)
			nutrition.POST("/calories", h.CalculateCalories)
		}

		api.GET("/foods/search", h.SearchFoods)
		api.POST("/vision/analyze", h.AnalyzeImage)
		api.POST("/shops/find", h.FindShops)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", deps.RateLimiter != nil),
	)

	return router
}
