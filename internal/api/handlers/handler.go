// Package handlers HTTP 處理器，只負責請求解析與錯誤轉換
package handlers

import (
	"context"

	"nutrition-api/internal/core/auth"
	"nutrition-api/internal/core/nutrition"
	"nutrition-api/internal/core/recipe"
	"nutrition-api/internal/core/shops"
	"nutrition-api/internal/infrastructure/persistence"
)

// Negotiator 渴望協商
type Negotiator interface {
	Negotiate(ctx context.Context, req recipe.NegotiateRequest) (*recipe.NegotiationResult, error)
}

// MoodAnalyzer 情緒分析
type MoodAnalyzer interface {
	AnalyzeMood(ctx context.Context, craving, mood string) (*recipe.MoodAnalysis, error)
}

// VisionAnalyzer 圖片食材辨識
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageData string) (*recipe.VisionResult, error)
}

// NutritionService 營養查詢與熱量計算
type NutritionService interface {
	AnalyzeNutrition(ctx context.Context, text string) (*nutrition.NutritionAnalysis, error)
	CalculateCalories(ctx context.Context, ingredients []string) int
	SearchFoods(ctx context.Context, query string, pageSize int) ([]nutrition.FoodItem, error)
}

// ShopFinder 附近商店
type ShopFinder interface {
	FindShops(ctx context.Context, req shops.FindRequest) ([]shops.Shop, error)
}

// Accounts 註冊與登入
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*persistence.User, error)
	Login(ctx context.Context, username, password string) (*auth.Token, error)
}

// Store 使用者資料
type Store interface {
	AddFavorite(ctx context.Context, userID uint, name string) (*persistence.FavoriteRecipe, error)
	ListFavorites(ctx context.Context, userID uint) ([]persistence.FavoriteRecipe, error)
	FavoriteNames(ctx context.Context, userID uint) ([]string, error)
	DeleteFavorite(ctx context.Context, userID, id uint) error
	AddMeal(ctx context.Context, userID uint, date string, meal *persistence.Meal) (*persistence.DiaryDay, error)
	GetDiaryDay(ctx context.Context, userID uint, date string) (*persistence.DiaryDay, error)
}

// Handler 所有 API 處理器共用的依賴
type Handler struct {
	negotiator Negotiator
	mood       MoodAnalyzer
	vision     VisionAnalyzer
	nutrition  NutritionService
	shops      ShopFinder
	accounts   Accounts
	store      Store
}

// Services Handler 的建構參數
type Services struct {
	Negotiator Negotiator
	Mood       MoodAnalyzer
	Vision     VisionAnalyzer
	Nutrition  NutritionService
	Shops      ShopFinder
	Accounts   Accounts
	Store      Store
}

// New 建立處理器
func New(s Services) *Handler {
	return &Handler{
		negotiator: s.Negotiator,
		mood:       s.Mood,
		vision:     s.Vision,
		nutrition:  s.Nutrition,
		shops:      s.Shops,
		accounts:   s.Accounts,
		store:      s.Store,
	}
}
