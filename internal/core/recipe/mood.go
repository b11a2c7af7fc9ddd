package recipe

import (
	"context"
	"fmt"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"
)

// MoodAnalyzer 依渴望與情緒給出同理的建議
type MoodAnalyzer struct {
	llm llm.Completer
}

// NewMoodAnalyzer 建立情緒分析器
func NewMoodAnalyzer(c llm.Completer) *MoodAnalyzer {
	return &MoodAnalyzer{llm: c}
}

// AnalyzeMood 非食物的渴望由模型在訊息中婉拒
func (m *MoodAnalyzer) AnalyzeMood(ctx context.Context, craving, mood string) (*MoodAnalysis, error) {
	craving = strings.TrimSpace(craving)
	if craving == "" {
		return nil, common.ErrInvalidRequest.WithMessage("Indica o que te apetece comer.")
	}
	if m.llm == nil {
		return nil, common.ErrServiceUnavailable
	}

	prompt := fmt.Sprintf("Desejo do utilizador: '%s', Estado emocional: '%s'. ", craving, strings.TrimSpace(mood)) +
		"Atua como um assistente de decisão alimentar inteligente e empático (PT-PT). " +
		"VALIDAÇÃO: Se o desejo for algo não comestível, recusa educadamente. " +
		`Retorna JSON: {"mood_type": "...", "empathy_message": "...", "explanation": "...", "eating_strategy": "..."}`

	var out MoodAnalysis
	if _, err := llm.CompleteJSON(ctx, m.llm, llm.Request{
		Messages: []common.Message{
			common.SystemMessage("És um assistente sofisticado. Responde em PT-PT. Retorna APENAS JSON."),
			common.UserMessage(prompt),
		},
		Temperature: 0.7,
		MaxTokens:   300,
	}, &out); err != nil {
		return nil, common.ErrAIServiceError.Wrap(err)
	}
	return &out, nil
}
