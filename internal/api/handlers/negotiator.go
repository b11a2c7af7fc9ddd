package handlers

import (
	"net/http"
	"strings"

	"nutrition-api/internal/api/middleware"
	"nutrition-api/internal/core/recipe"
	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NegotiateRequest 前端的協商請求
type NegotiateRequest struct {
	Craving        string   `json:"craving" binding:"required"`
	TargetCalories int      `json:"target_calories"`
	Mood           string   `json:"mood"`
	Allergens      []string `json:"allergens"`
	Goal           string   `json:"goal"`
}

// MoodRequest 情緒分析請求
type MoodRequest struct {
	Craving string `json:"craving" binding:"required"`
	Mood    string `json:"mood"`
}

// Negotiate POST /negotiator/negotiate；已登入時合併使用者的過敏原、最愛與目標
func (h *Handler) Negotiate(c *gin.Context) {
	var body NegotiateRequest
	if !bindJSON(c, &body) {
		return
	}

	req := recipe.NegotiateRequest{
		Craving:        strings.TrimSpace(body.Craving),
		TargetCalories: body.TargetCalories,
		Mood:           body.Mood,
		Allergens:      body.Allergens,
		Goal:           strings.ToLower(strings.TrimSpace(body.Goal)),
	}

	if user, ok := middleware.CurrentUser(c); ok {
		req.Allergens = unionFold(req.Allergens, user.AllergenNames())
		if req.Goal == "" {
			req.Goal = user.Goal
		}
		req.DailyTargetCalories = dailyTarget(user)

		if h.store != nil {
			favorites, err := h.store.FavoriteNames(c.Request.Context(), user.ID)
			if err != nil {
				common.LogWarn("讀取最愛料理失敗", zap.Uint("user_id", user.ID), zap.Error(err))
			}
			req.Favorites = favorites
		}
	}

	result, err := h.negotiator.Negotiate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeMood POST /negotiator/mood
func (h *Handler) AnalyzeMood(c *gin.Context) {
	var body MoodRequest
	if !bindJSON(c, &body) {
		return
	}

	result, err := h.mood.AnalyzeMood(c.Request.Context(), body.Craving, body.Mood)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// unionFold 合併兩組名稱，忽略大小寫與重音去重，保留先出現者
func unionFold(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool)
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := common.NormalizeText(s)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
