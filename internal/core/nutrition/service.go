package nutrition

import (
	"context"
	"strings"

	"nutrition-api/internal/core/ai/cache"
	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// 營養來源最多串接的遠端提供者數量
const maxRemoteProviders = 3

const maxPageSize = 50

// Service 營養查詢、熱量計算與文字分析
type Service struct {
	calculator *Calculator
	analyzer   *Analyzer
	staple     StapleLookup
	searchers  []Searcher
	ai         Searcher
	pageSize   int
}

// NewService 依設定組出查詢鏈；memory 與 shared 皆可為 nil
func NewService(cfg config.NutritionConfig, c llm.Completer, memory *cache.CacheManager, shared *cache.Service) *Service {
	staple := StapleLookup{}
	searchers := buildSearchers(cfg, memory, shared)

	lookups := make([]Lookup, 0, len(searchers)+1)
	lookups = append(lookups, staple)
	for _, s := range searchers {
		lookups = append(lookups, AsLookup(s, cfg.PageSize))
	}

	var estimator Estimator
	var ai Searcher
	if c != nil {
		estimator = NewAIEstimator(c, cfg.Heuristics.EstimateMaxIngredients)
		if cfg.AISearch {
			ai = Memoize(NewAISearcher(c), memory, shared)
		}
	}

	return &Service{
		calculator: NewCalculator(lookups, cfg.Heuristics, cfg.LookupTimeout, estimator),
		analyzer:   NewAnalyzer(c),
		staple:     staple,
		searchers:  searchers,
		ai:         ai,
		pageSize:   cfg.PageSize,
	}
}

func buildSearchers(cfg config.NutritionConfig, memory *cache.CacheManager, shared *cache.Service) []Searcher {
	searchers := make([]Searcher, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		var s Searcher
		switch strings.ToLower(strings.TrimSpace(name)) {
		case SourceOpenFoodFacts:
			s = NewOpenFoodFacts(cfg.OpenFoodFacts, cfg.LookupTimeout)
		case SourceUSDA:
			s = NewUSDA(cfg.USDA, cfg.LookupTimeout)
		case SourceFatSecret:
			if cfg.FatSecret.ClientID == "" || cfg.FatSecret.ClientSecret == "" {
				common.LogWarn("FatSecret 未設定憑證，略過此來源")
				continue
			}
			s = NewFatSecret(cfg.FatSecret, cfg.LookupTimeout)
		case SourceStaple, "":
			continue
		default:
			common.LogWarn("未知的營養來源", zap.String("provider", name))
			continue
		}
		if len(searchers) == maxRemoteProviders {
			common.LogWarn("營養來源過多，忽略其餘來源", zap.String("provider", name))
			break
		}
		searchers = append(searchers, Memoize(s, memory, shared))
	}
	return searchers
}

// Calculator 熱量計算器
func (s *Service) Calculator() *Calculator {
	return s.calculator
}

// CalculateCalories 見 Calculator.CalculateCalories
func (s *Service) CalculateCalories(ctx context.Context, ingredients []string) int {
	return s.calculator.CalculateCalories(ctx, ingredients)
}

// AnalyzeNutrition 見 Analyzer.AnalyzeNutrition
func (s *Service) AnalyzeNutrition(ctx context.Context, text string) (*NutritionAnalysis, error) {
	return s.analyzer.AnalyzeNutrition(ctx, text)
}

// SearchFoods 依序查詢遠端來源，之後是 AI 估算，最後是常見食材表
func (s *Service) SearchFoods(ctx context.Context, query string, pageSize int) ([]FoodItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []FoodItem{}, nil
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	for _, searcher := range s.searchers {
		items, err := searcher.Search(ctx, query, pageSize)
		if err != nil {
			common.LogDebug("營養來源查詢失敗，嘗試下一個", zap.String("provider", searcher.Name()), zap.Error(err))
			continue
		}
		if len(items) > 0 {
			return limit(items, pageSize), nil
		}
	}

	if s.ai != nil {
		items, err := s.ai.Search(ctx, query, pageSize)
		if err != nil {
			common.LogWarn("AI 營養搜尋失敗", zap.Error(err))
		} else if len(items) > 0 {
			return limit(items, pageSize), nil
		}
	}

	if item, _ := s.staple.Lookup(ctx, query); item != nil {
		return []FoodItem{*item}, nil
	}
	return []FoodItem{}, nil
}

func limit(items []FoodItem, n int) []FoodItem {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
