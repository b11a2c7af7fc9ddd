package nutrition

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FoodItem 每 100g 的營養資料，Source 標記來源
type FoodItem struct {
	Name            string  `json:"name"`
	CaloriesPer100g float64 `json:"calories_per_100g"`
	ProteinPer100g  float64 `json:"protein_per_100g"`
	CarbsPer100g    float64 `json:"carbs_per_100g"`
	FatPer100g      float64 `json:"fat_per_100g"`
	Source          string  `json:"source"`
}

// 資料來源標籤
const (
	SourceStaple        = "staple"
	SourceOpenFoodFacts = "openfoodfacts"
	SourceUSDA          = "usda"
	SourceFatSecret     = "fatsecret"
	SourceAIEstimate    = "ai_estimate"
)

// Unit 份量單位
type Unit string

const (
	UnitNone       Unit = ""
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
	UnitTablespoon Unit = "colher"
	UnitTeaspoon   Unit = "colher_cha"
	UnitCup        Unit = "chavena"
	UnitClove      Unit = "dente"
	UnitSlice      Unit = "fatia"
	UnitPiece      Unit = "unidade"
	UnitEgg        Unit = "ovo"
	UnitOunce      Unit = "oz"
	UnitPound      Unit = "lb"
	// UnitCount 只有數字沒有單位，例如 "2 tomates"
	UnitCount Unit = "count"
)

// IngredientLine 解析後的食材行
type IngredientLine struct {
	Raw        string  `json:"raw"`
	Quantity   float64 `json:"quantity"`
	Unit       Unit    `json:"unit"`
	Name       string  `json:"name"`
	SearchKey  string  `json:"search_key"`
	Multiplier float64 `json:"multiplier"`
}

// flexFloat 接受數字或數字字串（OpenFoodFacts 兩者都會出現）
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
