package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// Translator 把外部食譜翻譯成目標語言；失敗時回傳原食譜
type Translator struct {
	llm      llm.Completer
	language string
}

// NewTranslator language 例如 "português de Portugal (PT-PT)"
func NewTranslator(c llm.Completer, language string) *Translator {
	if language == "" {
		language = "português de Portugal (PT-PT)"
	}
	return &Translator{llm: c, language: language}
}

type translationPayload struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

// translatedRecipe 模型可能回傳非陣列，逐欄位檢查
type translatedRecipe struct {
	Title       string          `json:"title"`
	Ingredients json.RawMessage `json:"ingredients"`
	Steps       json.RawMessage `json:"steps"`
}

// Translate 保留熱量與時間，只翻譯標題、食材與步驟
func (t *Translator) Translate(ctx context.Context, r *Recipe) *Recipe {
	if t == nil || t.llm == nil || r == nil {
		return r
	}

	payload, err := json.Marshal(translationPayload{Title: r.Title, Ingredients: r.Ingredients, Steps: r.Steps})
	if err != nil {
		return r
	}

	prompt := fmt.Sprintf("Traduz para %s mantendo quantidades e sentido culinário. ", t.language) +
		"Responde APENAS com JSON válido no mesmo formato, sem texto extra: " +
		`{"title": "...", "ingredients": ["..."], "steps": ["..."]}.` +
		"\n\nDADOS:\n" + string(payload)

	var out translatedRecipe
	if _, err := llm.CompleteJSON(ctx, t.llm, llm.Request{
		Messages: []common.Message{
			common.SystemMessage("És um tradutor culinário PT-PT. Responde apenas JSON válido."),
			common.UserMessage(prompt),
		},
		Temperature: 0.2,
		MaxTokens:   900,
	}, &out); err != nil {
		common.LogWarn("食譜翻譯失敗，使用原文", zap.String("title", r.Title), zap.Error(err))
		return r
	}

	translated := *r
	if title := strings.TrimSpace(out.Title); title != "" {
		translated.Title = title
	}
	if list, ok := stringList(out.Ingredients); ok {
		translated.Ingredients = list
	}
	if list, ok := stringList(out.Steps); ok {
		translated.Steps = list
	}
	return &translated
}

// stringList 只接受 JSON 陣列，元素轉成字串並去除空白項
func stringList(raw json.RawMessage) ([]string, bool) {
	var items []interface{}
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(stringify(item)); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// stringify 結構化的步驟取其主要文字欄位
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]interface{}:
		for _, key := range []string{"acao", "ação", "action", "text", "texto", "descricao", "description", "step", "passo"} {
			if s, ok := val[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		raw, _ := json.Marshal(val)
		return string(raw)
	default:
		return fmt.Sprint(val)
	}
}
