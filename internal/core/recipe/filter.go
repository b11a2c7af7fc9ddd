package recipe

import (
	"strings"

	"nutrition-api/internal/pkg/common"
)

// ContainsAllergen 任一過敏原以子字串出現在任一食材中即為 true（忽略大小寫與重音）
// 同時比對過敏原的英文名稱，外部食譜的食材是英文
// 寧可誤判排除，也不能漏判
func ContainsAllergen(ingredients, allergens []string) bool {
	if len(allergens) == 0 || len(ingredients) == 0 {
		return false
	}

	for _, allergen := range allergens {
		forms := allergenForms(allergen)
		for _, ing := range ingredients {
			for _, form := range forms {
				if common.ContainsNormalized(ing, form) {
					return true
				}
			}
		}
	}
	return false
}

// allergenForms 原文加上已知的英文名稱
func allergenForms(allergen string) []string {
	normalized := common.NormalizeText(allergen)
	if normalized == "" {
		return nil
	}
	forms := []string{normalized}
	if en := TranslateTerm(normalized); en != normalized {
		forms = append(forms, en)
	}
	return forms
}

// normalizeAllergens 去除空白與重複
func normalizeAllergens(allergens []string) []string {
	out := make([]string, 0, len(allergens))
	seen := make(map[string]bool)
	for _, a := range allergens {
		trimmed := strings.TrimSpace(a)
		key := common.NormalizeText(trimmed)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}
