package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"
)

// NutritionAnalysis 自由文字的營養分析結果
type NutritionAnalysis struct {
	FoodText       string  `json:"food_text"`
	IsFood         bool    `json:"is_food"`
	Name           string  `json:"name"`
	Calories       float64 `json:"calories"`
	Protein        float64 `json:"protein"`
	Carbs          float64 `json:"carbs"`
	Fat            float64 `json:"fat"`
	EstimatedGrams float64 `json:"estimated_grams"`
}

type analysisPayload struct {
	IsFood         *bool     `json:"is_food"`
	ErrorMessage   *string   `json:"error_message"`
	Name           string    `json:"name"`
	Calories       flexFloat `json:"calories"`
	Protein        flexFloat `json:"protein"`
	Carbs          flexFloat `json:"carbs"`
	Fat            flexFloat `json:"fat"`
	EstimatedGrams flexFloat `json:"estimated_grams"`
}

// Analyzer 以 LLM 分析 "1 banana" 之類的文字
type Analyzer struct {
	llm llm.Completer
}

// NewAnalyzer 建立分析器
func NewAnalyzer(c llm.Completer) *Analyzer {
	return &Analyzer{llm: c}
}

// AnalyzeNutrition 非食物時回傳帶有模型說明的 common.ErrNotFood
func (a *Analyzer) AnalyzeNutrition(ctx context.Context, text string) (*NutritionAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.ErrInvalidRequest.WithMessage("Indica o alimento a analisar.")
	}
	if a.llm == nil {
		return nil, common.ErrServiceUnavailable
	}

	prompt := fmt.Sprintf("Analisa a informação nutricional para: '%s'. ", text) +
		"Estima as calorias e macronutrientes totais para a quantidade indicada. " +
		"Se a quantidade não for explícita, assume uma porção padrão média (ex: 1 banana = 120g). " +
		"VALIDAÇÃO: Se o item indicado NÃO for um alimento ou for algo impossível de comer (ex: pedras, objetos), " +
		"define 'is_food' como false e fornece uma 'error_message' explicativa em PT-PT. " +
		"Responde APENAS com um objeto JSON com este formato (sem markdown): " +
		`{"is_food": true, "error_message": null, "name": "Nome curto e claro do alimento (PT-PT)", ` +
		`"calories": 0, "protein": 0.0, "carbs": 0.0, "fat": 0.0, "estimated_grams": 100}`

	var payload analysisPayload
	if _, err := llm.CompleteJSON(ctx, a.llm, llm.Request{
		Messages: []common.Message{
			common.SystemMessage("You are a nutritional expert API. Output valid JSON only."),
			common.UserMessage(prompt),
		},
		Temperature: 0.3,
	}, &payload); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrGatewayTimeout.Wrap(err)
		}
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	if payload.IsFood != nil && !*payload.IsFood {
		msg := "O item indicado não é um alimento válido."
		if payload.ErrorMessage != nil && strings.TrimSpace(*payload.ErrorMessage) != "" {
			msg = strings.TrimSpace(*payload.ErrorMessage)
		}
		return nil, common.ErrNotFood.WithMessage(msg)
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = text
	}
	return &NutritionAnalysis{
		FoodText:       text,
		IsFood:         true,
		Name:           name,
		Calories:       float64(payload.Calories),
		Protein:        float64(payload.Protein),
		Carbs:          float64(payload.Carbs),
		Fat:            float64(payload.Fat),
		EstimatedGrams: float64(payload.EstimatedGrams),
	}, nil
}
