package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"
)

// 模型常把陣列包在這些鍵底下
var aiWrapperKeys = []string{"foods", "items", "results", "alimentos", "data"}

// AISearcher 讓 LLM 充當營養資料庫
type AISearcher struct {
	llm llm.Completer
}

type aiFood struct {
	Name     string    `json:"name"`
	Calories flexFloat `json:"calories_per_100g"`
	Protein  flexFloat `json:"protein_per_100g"`
	Carbs    flexFloat `json:"carbs_per_100g"`
	Fat      flexFloat `json:"fat_per_100g"`
}

// NewAISearcher 建立 AI 估算搜尋器
func NewAISearcher(c llm.Completer) *AISearcher {
	return &AISearcher{llm: c}
}

// Name 來源名稱
func (a *AISearcher) Name() string { return SourceAIEstimate }

// Search 模型回傳格式錯誤時回傳空清單而非錯誤
func (a *AISearcher) Search(ctx context.Context, query string, pageSize int) ([]FoodItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(
		"Gera uma lista de %d alimentos comuns que correspondam à pesquisa: '%s'. "+
			"Para cada alimento, fornece uma estimativa nutricional realista por 100g. "+
			"Responde APENAS com JSON válido no formato "+
			`{"foods": [{"name": "Nome do Alimento", "calories_per_100g": 0, "protein_per_100g": 0.0, "carbs_per_100g": 0.0, "fat_per_100g": 0.0}]}`,
		pageSize, query)

	start := time.Now()
	var raw json.RawMessage
	_, err := llm.CompleteJSON(ctx, a.llm, llm.Request{
		Messages: []common.Message{
			common.SystemMessage("És uma base de dados nutricional precisa. Responde apenas JSON."),
			common.UserMessage(prompt),
		},
		Temperature: 0.3,
	}, &raw)
	if err != nil {
		if errors.Is(err, llm.ErrMalformedJSON) {
			observe(a.Name(), time.Since(start), nil, 0)
			return nil, nil
		}
		observe(a.Name(), time.Since(start), err, 0)
		return nil, err
	}

	foods := unwrapFoods(raw)
	items := make([]FoodItem, 0, len(foods))
	for _, f := range foods {
		if f.Calories <= 0 {
			continue
		}
		name := strings.TrimSpace(f.Name)
		if name == "" {
			name = query
		}
		items = append(items, FoodItem{
			Name:            name,
			CaloriesPer100g: float64(f.Calories),
			ProteinPer100g:  float64(f.Protein),
			CarbsPer100g:    float64(f.Carbs),
			FatPer100g:      float64(f.Fat),
			Source:          SourceAIEstimate,
		})
		if pageSize > 0 && len(items) >= pageSize {
			break
		}
	}

	observe(a.Name(), time.Since(start), nil, len(items))
	return items, nil
}

// unwrapFoods 接受陣列、包裝物件或單一食物物件
func unwrapFoods(raw json.RawMessage) []aiFood {
	var list []aiFood
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	for _, key := range aiWrapperKeys {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, &list); err == nil {
				return list
			}
		}
	}
	for _, v := range obj {
		if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
			return list
		}
	}

	_, hasName := obj["name"]
	_, hasCalories := obj["calories_per_100g"]
	if hasName && hasCalories {
		var single aiFood
		if err := json.Unmarshal(raw, &single); err == nil {
			return []aiFood{single}
		}
	}
	return nil
}
