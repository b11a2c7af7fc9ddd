package recipe

import (
	"context"
	"encoding/json"
	"strings"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

const defaultVisionMessage = "Encontrei excelentes ingredientes!"

const visionPrompt = "Analisa esta imagem de ingredientes de cozinha. " +
	"1. Identifica todos os ingredientes visíveis que podem ser usados numa receita. " +
	"2. Cria uma receita saudável e criativa usando principalmente estes ingredientes " +
	"(podes assumir ingredientes básicos de despensa como sal, azeite, especiarias). " +
	"3. Indica quantidades concretas em cada ingrediente. " +
	"4. A resposta deve ser em Português de Portugal (PT-PT). " +
	"5. Se a imagem não tiver comida nem ingredientes, devolve 'detected_ingredients' vazio, 'recipe' como null e explica na 'message'. " +
	"6. Retorna RIGOROSAMENTE um objeto JSON com esta estrutura: " +
	`{"detected_ingredients": ["ingrediente 1", "ingrediente 2"], ` +
	`"message": "Um comentário encorajador do Chef sobre os ingredientes encontrados", ` +
	`"recipe": {"title": "Nome da receita", "calories": 450, "time_minutes": 25, ` +
	`"ingredients": ["lista completa com quantidades"], "steps": ["passo 1", "passo 2"]}}`

// ImageProcessor 把上傳的圖片轉成 JPEG data URI（image.Service 實作）
type ImageProcessor interface {
	ProcessImage(ctx context.Context, imageData string) (string, error)
}

// VisionAnalyzer 由照片辨識食材並產生食譜
type VisionAnalyzer struct {
	llm    llm.Completer
	images ImageProcessor
	calc   CalorieCalculator
	model  string
}

type visionPayload struct {
	DetectedIngredients json.RawMessage `json:"detected_ingredients"`
	Message             string          `json:"message"`
	Recipe              json.RawMessage `json:"recipe"`
}

// NewVisionAnalyzer model 為視覺模型名稱
func NewVisionAnalyzer(c llm.Completer, images ImageProcessor, calc CalorieCalculator, model string) *VisionAnalyzer {
	return &VisionAnalyzer{llm: c, images: images, calc: calc, model: model}
}

// AnalyzeImage 食譜熱量以本地計算覆蓋模型的猜測
func (v *VisionAnalyzer) AnalyzeImage(ctx context.Context, imageData string) (*VisionResult, error) {
	if v.llm == nil {
		return nil, common.ErrServiceUnavailable
	}

	dataURI, err := v.images.ProcessImage(ctx, imageData)
	if err != nil {
		return nil, err
	}

	var payload visionPayload
	if _, err := llm.CompleteJSON(ctx, v.llm, llm.Request{
		Model:       v.model,
		Messages:    []common.Message{common.UserImageMessage(visionPrompt, dataURI)},
		Temperature: 0.5,
	}, &payload); err != nil {
		common.LogError("圖片分析失敗", zap.Error(err))
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	detected, _ := stringList(payload.DetectedIngredients)
	if detected == nil {
		detected = []string{}
	}

	result := &VisionResult{
		DetectedIngredients: detected,
		Message:             strings.TrimSpace(payload.Message),
	}
	if result.Message == "" {
		result.Message = defaultVisionMessage
	}

	recipe, err := parseGeneratedRecipe(payload.Recipe)
	if err != nil {
		common.LogWarn("圖片分析的食譜格式不完整，僅回傳食材", zap.Error(err))
		return result, nil
	}
	if recipe != nil && v.calc != nil {
		if computed := v.calc.CalculateCalories(ctx, recipe.Ingredients); computed > 0 {
			recipe.Calories = computed
		}
	}
	result.Recipe = recipe
	return result, nil
}
