package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const (
	maxIngredientLines = 100
	defaultPageSize    = 10
)

// AnalyzeRequest 自由文字營養分析
type AnalyzeRequest struct {
	Text string `json:"text" binding:"required"`
}

// CaloriesRequest 食材清單熱量計算
type CaloriesRequest struct {
	Ingredients []string `json:"ingredients" binding:"required"`
}

// CaloriesResponse 熱量計算結果
type CaloriesResponse struct {
	Calories int `json:"calories"`
}

// AnalyzeNutrition POST /nutrition/analyze
func (h *Handler) AnalyzeNutrition(c *gin.Context) {
	var req AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.nutrition.AnalyzeNutrition(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CalculateCalories POST /nutrition/calories
func (h *Handler) CalculateCalories(c *gin.Context) {
	var req CaloriesRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Ingredients) > maxIngredientLines {
		respondError(c, common.ErrInvalidRequest.WithMessage("Demasiados ingredientes num só pedido."))
		return
	}

	c.JSON(http.StatusOK, CaloriesResponse{
		Calories: h.nutrition.CalculateCalories(c.Request.Context(), req.Ingredients),
	})
}

// SearchFoods GET /foods/search?q=&page_size=
func (h *Handler) SearchFoods(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, common.ErrInvalidRequest.WithMessage("Indica um alimento para pesquisar."))
		return
	}

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, common.ErrInvalidRequest.WithMessage("page_size inválido."))
			return
		}
		pageSize = n
	}

	foods, err := h.nutrition.SearchFoods(c.Request.Context(), query, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, foods)
}
