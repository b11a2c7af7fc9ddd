package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"nutrition-api/internal/api/middleware"
	"nutrition-api/internal/infrastructure/persistence"
	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// MealRequest 日記新增餐點；date 省略時為今天
type MealRequest struct {
	Date     string `json:"date"`
	Name     string `json:"name" binding:"required"`
	Calories *int   `json:"calories"`
	// Ingredients 沒有提供 calories 時用來計算
	Ingredients []string `json:"ingredients"`
}

// DiaryResponse 單日日記
type DiaryResponse struct {
	Date          string             `json:"date"`
	Meals         []persistence.Meal `json:"meals"`
	TotalCalories int                `json:"total_calories"`
}

func diaryResponse(day *persistence.DiaryDay) DiaryResponse {
	meals := day.Meals
	if meals == nil {
		meals = []persistence.Meal{}
	}
	return DiaryResponse{Date: day.Date, Meals: meals, TotalCalories: day.TotalCalories()}
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// AddMeal POST /diary/meals
func (h *Handler) AddMeal(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, common.ErrUnauthorized)
		return
	}

	var req MealRequest
	if !bindJSON(c, &req) {
		return
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if !validDate(date) {
		respondError(c, common.ErrInvalidRequest.WithMessage("Data inválida. Usa o formato AAAA-MM-DD."))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, common.ErrInvalidRequest.WithMessage("Indica o nome da refeição."))
		return
	}

	calories := 0
	switch {
	case req.Calories != nil:
		calories = *req.Calories
	case len(req.Ingredients) > 0:
		calories = h.nutrition.CalculateCalories(c.Request.Context(), req.Ingredients)
	}
	if calories < 0 {
		respondError(c, common.ErrInvalidRequest.WithMessage("As calorias não podem ser negativas."))
		return
	}

	day, err := h.store.AddMeal(c.Request.Context(), user.ID, date, &persistence.Meal{Name: name, Calories: calories})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, diaryResponse(day))
}

// GetDiary GET /diary/:date
func (h *Handler) GetDiary(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, common.ErrUnauthorized)
		return
	}

	date := c.Param("date")
	if !validDate(date) {
		respondError(c, common.ErrInvalidRequest.WithMessage("Data inválida. Usa o formato AAAA-MM-DD."))
		return
	}

	day, err := h.store.GetDiaryDay(c.Request.Context(), user.ID, date)
	if errors.Is(err, persistence.ErrNotFound) {
		// 沒有紀錄的日子回傳空日記
		day = &persistence.DiaryDay{Date: date}
		err = nil
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, diaryResponse(day))
}
