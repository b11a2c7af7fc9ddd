package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	defaultTargetCalories = 600
	defaultTimeMinutes    = 30
	negotiationMaxTokens  = 1000
)

const (
	refusalMessage  = "Só consigo sugerir receitas de comida real e saudável. Indica um prato ou alimento que te apeteça."
	allergenMessage = "Não consegui criar uma receita segura para as tuas alergias. Tenta reformular o pedido."
)

// errAllergenInRecipe 生成的食譜含有過敏原
var errAllergenInRecipe = errors.New("generated recipe contains an allergen")

// attempt 一次生成嘗試的取樣設定
type attempt struct {
	temperature      float64
	presencePenalty  float64
	frequencyPenalty float64
	strict           bool
}

var (
	creativeAttempt = attempt{temperature: 1.08, presencePenalty: 0.9, frequencyPenalty: 0.8}
	strictAttempt   = attempt{temperature: 0.65, presencePenalty: 0.35, frequencyPenalty: 0.35, strict: true}
)

// Negotiator 把渴望轉成較健康、符合熱量目標的食譜
type Negotiator struct {
	llm      llm.Completer
	calc     CalorieCalculator
	external *ExternalFinder
}

// NewNegotiator external 為 nil 時直接生成
func NewNegotiator(c llm.Completer, calc CalorieCalculator, external *ExternalFinder) *Negotiator {
	return &Negotiator{llm: c, calc: calc, external: external}
}

type negotiationPayload struct {
	Message              string          `json:"message"`
	Recipe               json.RawMessage `json:"recipe"`
	RestaurantSearchTerm string          `json:"restaurant_search_term"`
}

type generatedRecipe struct {
	Title       string          `json:"title"`
	Calories    json.RawMessage `json:"calories"`
	TimeMinutes json.RawMessage `json:"time_minutes"`
	Ingredients json.RawMessage `json:"ingredients"`
	Steps       json.RawMessage `json:"steps"`
}

// Negotiate 外部資料庫優先，其次 LLM 生成；JSON 格式錯誤只重試一次
func (n *Negotiator) Negotiate(ctx context.Context, req NegotiateRequest) (*NegotiationResult, error) {
	req.Craving = strings.TrimSpace(req.Craving)
	if req.Craving == "" {
		return nil, common.ErrInvalidRequest.WithMessage("Indica o que te apetece comer.")
	}
	if req.TargetCalories <= 0 {
		req.TargetCalories = defaultTargetCalories
	}
	req.Allergens = normalizeAllergens(req.Allergens)

	if result := n.external.Find(ctx, req); result != nil {
		monitoring.ObserveNegotiation(SourceExternal)
		common.LogInfo("使用外部食譜",
			zap.String("craving", req.Craving),
			zap.String("title", result.Recipe.Title),
		)
		return result, nil
	}

	if n.llm == nil {
		return nil, common.ErrNegotiationFailed.Wrap(errors.New("llm client not configured"))
	}

	prompt := buildNegotiationPrompt(req, randomStyle(req.Favorites))

	result, err := n.generate(ctx, req, prompt, creativeAttempt)
	if err != nil {
		if !llm.IsRetryableJSONError(err) && !errors.Is(err, errAllergenInRecipe) {
			common.LogError("食譜生成失敗", zap.String("craving", req.Craving), zap.Error(err))
			return nil, common.ErrNegotiationFailed.Wrap(err)
		}

		common.LogWarn("食譜生成結果無效，以嚴格模式重試", zap.Error(err))
		retryPrompt := prompt
		if errors.Is(err, errAllergenInRecipe) {
			retryPrompt += allergenReminder(req.Allergens)
		}

		var retryErr error
		result, retryErr = n.generate(ctx, req, retryPrompt, strictAttempt)
		if retryErr != nil {
			if errors.Is(retryErr, errAllergenInRecipe) || (errors.Is(err, errAllergenInRecipe) && llm.IsRetryableJSONError(retryErr)) {
				monitoring.ObserveNegotiation(SourceRejected)
				return &NegotiationResult{
					OriginalCraving:      req.Craving,
					Message:              allergenMessage,
					RestaurantSearchTerm: req.Craving,
					Source:               SourceRejected,
				}, nil
			}
			common.LogError("食譜生成重試失敗", zap.String("craving", req.Craving), zap.Error(retryErr))
			return nil, common.ErrNegotiationFailed.Wrap(retryErr)
		}
	}

	monitoring.ObserveNegotiation(result.Source)
	return result, nil
}

// generate 單次生成，回傳格式錯誤時包裝 llm.ErrMalformedJSON
func (n *Negotiator) generate(ctx context.Context, req NegotiateRequest, prompt string, a attempt) (*NegotiationResult, error) {
	userContent := prompt
	if a.strict {
		userContent += strictJSONRules
	}

	var payload negotiationPayload
	if _, err := llm.CompleteJSON(ctx, n.llm, llm.Request{
		Messages: []common.Message{
			common.SystemMessage(chefSystemPrompt),
			common.UserMessage(userContent),
		},
		Temperature:      a.temperature,
		MaxTokens:        negotiationMaxTokens,
		PresencePenalty:  a.presencePenalty,
		FrequencyPenalty: a.frequencyPenalty,
	}, &payload); err != nil {
		return nil, err
	}

	if len(payload.Recipe) == 0 && strings.TrimSpace(payload.Message) == "" {
		return nil, fmt.Errorf("%w: response has neither message nor recipe", llm.ErrMalformedJSON)
	}

	recipe, err := parseGeneratedRecipe(payload.Recipe)
	if err != nil {
		return nil, err
	}

	result := &NegotiationResult{
		OriginalCraving:      req.Craving,
		Message:              strings.TrimSpace(payload.Message),
		Recipe:               recipe,
		RestaurantSearchTerm: strings.TrimSpace(payload.RestaurantSearchTerm),
		Source:               SourceGenerated,
	}
	if result.RestaurantSearchTerm == "" {
		result.RestaurantSearchTerm = req.Craving
	}

	if recipe == nil {
		result.Source = SourceRejected
		if result.Message == "" {
			result.Message = refusalMessage
		}
		return result, nil
	}

	if ContainsAllergen(recipe.Ingredients, req.Allergens) {
		return nil, fmt.Errorf("%w: %s", errAllergenInRecipe, recipe.Title)
	}

	if n.calc != nil {
		if computed := n.calc.CalculateCalories(ctx, recipe.Ingredients); computed > 0 {
			recipe.Calories = computed
		}
	}
	return result, nil
}

// parseGeneratedRecipe null 表示拒絕；缺少必要欄位視為格式錯誤
func parseGeneratedRecipe(raw json.RawMessage) (*Recipe, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var g generatedRecipe
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: recipe is not an object: %v", llm.ErrMalformedJSON, err)
	}

	ingredients, ok := stringList(g.Ingredients)
	if !ok || len(ingredients) == 0 {
		return nil, fmt.Errorf("%w: recipe has no ingredients", llm.ErrMalformedJSON)
	}
	steps, _ := stringList(g.Steps)

	title := strings.TrimSpace(g.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: recipe has no title", llm.ErrMalformedJSON)
	}

	timeMinutes := jsonInt(g.TimeMinutes)
	if timeMinutes <= 0 {
		timeMinutes = defaultTimeMinutes
	}

	return &Recipe{
		Title:       title,
		Calories:    jsonInt(g.Calories),
		TimeMinutes: timeMinutes,
		Ingredients: ingredients,
		Steps:       steps,
	}, nil
}

// jsonInt 接受數字或 "450 kcal" 之類的字串
func jsonInt(raw json.RawMessage) int {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if json.Unmarshal(raw, &str) != nil {
			return 0
		}
		s = strings.TrimSpace(str)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
			end++
		}
		s = s[:end]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f + 0.5)
}
