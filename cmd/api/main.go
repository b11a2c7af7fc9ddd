package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrition-api/internal/api"
	"nutrition-api/internal/api/handlers"
	"nutrition-api/internal/api/handlers/health"
	"nutrition-api/internal/api/middleware"
	"nutrition-api/internal/core/ai/cache"
	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/core/ai/queue"
	"nutrition-api/internal/core/auth"
	"nutrition-api/internal/core/image"
	"nutrition-api/internal/core/nutrition"
	"nutrition-api/internal/core/recipe"
	"nutrition-api/internal/core/shops"
	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/persistence"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = 5 * time.Minute
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("llm_base_url", cfg.LLM.BaseURL),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("llm_fallback_model", cfg.LLM.FallbackModel),
		zap.Strings("nutrition_providers", cfg.Nutrition.Providers),
		zap.Bool("mealdb_enabled", cfg.MealDB.Enabled),
	)

	// 資料庫
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer func() { _ = persistence.Close(db) }()
	repo := persistence.NewRepository(db)

	// 快取：記憶體 LRU + 可選的 redis
	memory := cache.NewManager(cfg)
	defer memory.Close()

	shared, err := cache.NewService(cfg.Cache)
	if err != nil {
		// redis 只是第二層快取，連不上時降級為只用記憶體
		common.LogWarn("Redis unavailable, using in-memory cache only", zap.Error(err))
		shared = nil
	}
	defer shared.Close()

	// 核心服務
	completer := queue.NewManager(llm.NewClient(cfg.LLM), cfg.LLM)
	nutritionSvc := nutrition.NewService(cfg.Nutrition, completer, memory, shared)

	var external *recipe.ExternalFinder
	if cfg.MealDB.Enabled {
		var translator *recipe.Translator
		if cfg.MealDB.Translate {
			translator = recipe.NewTranslator(completer, cfg.MealDB.TargetLanguage)
		}
		external = recipe.NewExternalFinder(recipe.NewMealDB(cfg.MealDB), nutritionSvc, translator, cfg.MealDB)
	}

	images := image.NewService(cfg.Image)
	accounts := auth.NewService(repo, cfg.Auth)

	handler := handlers.New(handlers.Services{
		Negotiator: recipe.NewNegotiator(completer, nutritionSvc, external),
		Mood:       recipe.NewMoodAnalyzer(completer),
		Vision:     recipe.NewVisionAnalyzer(completer, images, nutritionSvc, cfg.LLM.VisionModel),
		Nutrition:  nutritionSvc,
		Shops:      shops.NewService(shops.NewOverpass(cfg.Overpass), shops.NewTagger(completer), cfg.Overpass),
		Accounts:   accounts,
		Store:      repo,
	})

	healthHandler := health.NewHandler(cfg.App.Version, memory).Require("database", repo)
	if shared != nil {
		healthHandler.Optional("redis", shared)
	}

	deps := api.Dependencies{
		Handler:       handler,
		Health:        healthHandler,
		Authenticator: accounts,
		Deduplicator:  middleware.NewDeduplicator(cfg.DedupWindow),
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go pruneLoop(ctx, deps)

	router := api.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	<-ctx.Done()
	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// pruneLoop 定期清理限流與去重的過期狀態
func pruneLoop(ctx context.Context, deps api.Dependencies) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := deps.Deduplicator.Prune()
			if deps.RateLimiter != nil {
				removed += deps.RateLimiter.Prune()
			}
			if removed > 0 {
				common.LogDebug("Pruned middleware state", zap.Int("removed", removed))
			}
		}
	}
}
