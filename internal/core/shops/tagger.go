package shops

import (
	"context"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultShopTag 模型無法判斷時使用
const DefaultShopTag = "supermarket"

const maxTagLength = 32

// Tagger 由食材清單推斷最合適的 OSM shop 標籤
type Tagger struct {
	llm llm.Completer
}

// NewTagger c 為 nil 時一律回傳預設標籤
func NewTagger(c llm.Completer) *Tagger {
	return &Tagger{llm: c}
}

// ShopTag 失敗或回傳不合法時回傳 DefaultShopTag
func (t *Tagger) ShopTag(ctx context.Context, ingredients []string) string {
	if t == nil || t.llm == nil || len(ingredients) == 0 {
		return DefaultShopTag
	}

	prompt := "Analyze this list of ingredients: " + strings.Join(ingredients, ", ") + ". " +
		"Determine the single best OpenStreetMap 'shop' tag key to find them. " +
		"Examples: 'supermarket', 'convenience', 'greengrocer', 'butcher', 'health_food', 'delicatessen'. " +
		"Return ONLY the clean string of the tag with no punctuation or extra text."

	completion, err := t.llm.Complete(ctx, llm.Request{
		Messages: []common.Message{
			common.SystemMessage("You are a helpful assistant that maps ingredients to OpenStreetMap tags."),
			common.UserMessage(prompt),
		},
		Temperature: 0.3,
		MaxTokens:   10,
	})
	if err != nil {
		common.LogWarn("商店標籤推斷失敗，使用預設", zap.Error(err))
		return DefaultShopTag
	}

	tag := SanitizeTag(completion.Content)
	if tag == "" {
		return DefaultShopTag
	}
	return tag
}

// SanitizeTag 只保留 [a-z_]，標籤會直接拼進 Overpass 查詢
func SanitizeTag(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			if b.Len() > 0 {
				b.WriteRune('_')
			}
		case r == '\n':
			return strings.Trim(b.String(), "_")
		}
		if b.Len() >= maxTagLength {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
