package nutrition

import (
	"math"
	"strings"
)

const (
	lightActivityFactor = 1.4
	minDailyCalories    = 1200
)

// Profile 估算每日熱量所需的身體資料
type Profile struct {
	WeightKg float64
	HeightCm float64
	Age      int
	Sex      string
	Goal     string
}

// DailyCalories Mifflin-St Jeor 基礎代謝 × 輕度活動；資料不足時回傳 0
func DailyCalories(p Profile) int {
	if p.WeightKg <= 0 || p.HeightCm <= 0 || p.Age <= 0 {
		return 0
	}

	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch strings.ToLower(strings.TrimSpace(p.Sex)) {
	case "m", "male", "masculino", "homem":
		bmr += 5
	case "f", "female", "feminino", "mulher":
		bmr -= 161
	default:
		// 未知性別取兩者平均
		bmr -= 78
	}

	daily := bmr * lightActivityFactor
	switch strings.ToLower(strings.TrimSpace(p.Goal)) {
	case "lose":
		daily -= 500
	case "gain":
		daily += 300
	}
	return int(math.Max(minDailyCalories, math.Round(daily)))
}
