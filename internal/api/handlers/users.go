package handlers

import (
	"net/http"
	"time"

	"nutrition-api/internal/api/middleware"
	"nutrition-api/internal/core/auth"
	"nutrition-api/internal/core/nutrition"
	"nutrition-api/internal/infrastructure/persistence"
	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登入請求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse 使用者資料（不含密碼雜湊）
type UserResponse struct {
	ID                  uint      `json:"id"`
	Username            string    `json:"username"`
	Weight              float64   `json:"weight,omitempty"`
	Height              float64   `json:"height,omitempty"`
	Sex                 string    `json:"sex,omitempty"`
	Age                 int       `json:"age,omitempty"`
	Goal                string    `json:"goal,omitempty"`
	Allergens           []string  `json:"allergens"`
	DailyTargetCalories int       `json:"daily_target_calories,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func userResponse(u *persistence.User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		Username:            u.Username,
		Weight:              u.Weight,
		Height:              u.Height,
		Sex:                 u.Sex,
		Age:                 u.Age,
		Goal:                u.Goal,
		Allergens:           u.AllergenNames(),
		DailyTargetCalories: dailyTarget(u),
		CreatedAt:           u.CreatedAt,
	}
}

func dailyTarget(u *persistence.User) int {
	return nutrition.DailyCalories(nutrition.Profile{
		WeightKg: u.Weight,
		HeightCm: u.Height,
		Age:      u.Age,
		Sex:      u.Sex,
		Goal:     u.Goal,
	})
}

// Register POST /users
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userResponse(user))
}

// Login POST /login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Me GET /me
func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, common.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}
