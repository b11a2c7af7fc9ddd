package nutrition

import (
	"context"
	"fmt"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"
)

// Estimator 查表全部失敗時的整體熱量估算
type Estimator interface {
	EstimateCalories(ctx context.Context, ingredients []string) (int, error)
}

// AIEstimator 請 LLM 估算整份食材的總熱量
type AIEstimator struct {
	llm            llm.Completer
	maxIngredients int
}

// NewAIEstimator maxIngredients 限制送給模型的食材數量
func NewAIEstimator(c llm.Completer, maxIngredients int) *AIEstimator {
	return &AIEstimator{llm: c, maxIngredients: maxIngredients}
}

// EstimateCalories 回傳非負整數
func (e *AIEstimator) EstimateCalories(ctx context.Context, ingredients []string) (int, error) {
	lines := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if s := strings.TrimSpace(ing); s != "" {
			lines = append(lines, "- "+s)
		}
		if e.maxIngredients > 0 && len(lines) >= e.maxIngredients {
			break
		}
	}
	if len(lines) == 0 {
		return 0, nil
	}

	prompt := "Estima o total de calorias (kcal) da seguinte lista de ingredientes, " +
		"considerando as quantidades indicadas ou porções habituais quando não houver quantidade.\n" +
		strings.Join(lines, "\n") +
		"\nResponde APENAS com JSON válido no formato {\"total_calories\": 0}."

	var result struct {
		TotalCalories flexFloat `json:"total_calories"`
	}
	if _, err := llm.CompleteJSON(ctx, e.llm, llm.Request{
		Messages: []common.Message{
			common.SystemMessage("És um nutricionista. Responde apenas JSON."),
			common.UserMessage(prompt),
		},
		Temperature: 0.2,
		MaxTokens:   100,
	}, &result); err != nil {
		return 0, fmt.Errorf("failed to estimate calories: %w", err)
	}

	if result.TotalCalories <= 0 {
		return 0, nil
	}
	return int(float64(result.TotalCalories) + 0.5), nil
}
