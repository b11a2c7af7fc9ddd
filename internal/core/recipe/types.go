package recipe

import (
	"context"
)

// 飲食目標
const (
	GoalLose     = "lose"
	GoalGain     = "gain"
	GoalMaintain = "maintain"
)

// 結果來源
const (
	SourceExternal  = "external"
	SourceGenerated = "generated"
	SourceRejected  = "rejected"
)

// CalorieCalculator 以食材行計算總熱量（nutrition.Service 實作）
type CalorieCalculator interface {
	CalculateCalories(ctx context.Context, ingredients []string) int
}

// NegotiateRequest 一次渴望協商的輸入
type NegotiateRequest struct {
	Craving             string   `json:"craving"`
	TargetCalories      int      `json:"target_calories"`
	Mood                string   `json:"mood,omitempty"`
	Favorites           []string `json:"favorites,omitempty"`
	Allergens           []string `json:"allergens,omitempty"`
	Goal                string   `json:"goal,omitempty"`
	DailyTargetCalories int      `json:"daily_target_calories,omitempty"`
}

// Recipe 回傳給前端的食譜
type Recipe struct {
	Title       string   `json:"title"`
	Calories    int      `json:"calories"`
	TimeMinutes int      `json:"time_minutes"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

// NegotiationResult Recipe 為 nil 表示請求被拒（非食物或不安全）
type NegotiationResult struct {
	OriginalCraving      string  `json:"original_craving"`
	Message              string  `json:"message"`
	Recipe               *Recipe `json:"recipe"`
	RestaurantSearchTerm string  `json:"restaurant_search_term"`
	Source               string  `json:"source"`
}

// MoodAnalysis 情緒分析結果
type MoodAnalysis struct {
	MoodType       string `json:"mood_type"`
	EmpathyMessage string `json:"empathy_message"`
	Explanation    string `json:"explanation"`
	EatingStrategy string `json:"eating_strategy"`
}

// VisionResult 圖片辨識結果
type VisionResult struct {
	DetectedIngredients []string `json:"detected_ingredients"`
	Message             string   `json:"message"`
	Recipe              *Recipe  `json:"recipe"`
}
