package nutrition

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoCalories 描述字串中找不到熱量
var ErrNoCalories = errors.New("nutrient description has no calories")

// NutrientFacts 描述字串的解析結果；BasisGrams 為 0 表示份量未知
type NutrientFacts struct {
	Calories   float64
	Fat        float64
	Carbs      float64
	Protein    float64
	BasisGrams float64
}

var (
	// 與分隔符號無關："|"、","、";" 都可以
	nutrientFieldPattern = regexp.MustCompile(`(?i)(calories|energy|kcal|fat|carbs|carbohydrates?|protein)\s*:\s*(\d+(?:[.,]\d+)?)\s*(kcal|kj|g)?`)
	basisGramsPattern    = regexp.MustCompile(`(?i)per\s+(\d+(?:[.,]\d+)?)\s*(g|ml)\b`)
	servingGramsPattern  = regexp.MustCompile(`(?i)\((\d+(?:[.,]\d+)?)\s*(g|ml)\)`)
)

// ParseNutrientDescription 解析 "Per 100g - Calories: 165kcal | Fat: 3.57g | Carbs: 0.00g | Protein: 31.02g"
func ParseNutrientDescription(desc string) (NutrientFacts, error) {
	var facts NutrientFacts

	basis, body := "", desc
	if before, after, ok := strings.Cut(desc, " - "); ok {
		basis, body = before, after
	}
	facts.BasisGrams = parseBasisGrams(basis)

	found := false
	for _, m := range nutrientFieldPattern.FindAllStringSubmatch(body, -1) {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "calories", "energy", "kcal":
			if strings.EqualFold(m[3], "kj") {
				value = value / 4.184
			}
			facts.Calories = value
			found = true
		case "fat":
			facts.Fat = value
		case "carbs", "carbohydrate", "carbohydrates":
			facts.Carbs = value
		case "protein":
			facts.Protein = value
		}
	}

	if !found {
		return facts, ErrNoCalories
	}
	return facts, nil
}

func parseBasisGrams(basis string) float64 {
	if m := basisGramsPattern.FindStringSubmatch(basis); m != nil {
		v, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		return v
	}
	if m := servingGramsPattern.FindStringSubmatch(basis); m != nil {
		v, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		return v
	}
	return 0
}

// Per100g 換算成每 100g；份量未知時回傳 false
func (f NutrientFacts) Per100g() (NutrientFacts, bool) {
	if f.BasisGrams <= 0 {
		return f, false
	}
	scale := 100 / f.BasisGrams
	return NutrientFacts{
		Calories:   f.Calories * scale,
		Fat:        f.Fat * scale,
		Carbs:      f.Carbs * scale,
		Protein:    f.Protein * scale,
		BasisGrams: 100,
	}, true
}
