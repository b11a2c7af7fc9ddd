package recipe

import (
	"context"
	"sort"
	"strings"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	externalMessage     = "Encontrei uma receita numa base externa com boa correspondência aos alimentos pedidos."
	defaultExternalStep = "Segue o modo de preparação tradicional do prato."
	externalTimeMinutes = 35
	minExternalCalories = 250
)

// ExternalFinder 先查外部食譜資料庫，找到有事實依據的食譜就不必生成
type ExternalFinder struct {
	source     RecipeSource
	calc       CalorieCalculator
	translator *Translator
	cfg        config.MealDBConfig
}

// NewExternalFinder translator 為 nil 時不翻譯
func NewExternalFinder(source RecipeSource, calc CalorieCalculator, translator *Translator, cfg config.MealDBConfig) *ExternalFinder {
	return &ExternalFinder{source: source, calc: calc, translator: translator, cfg: cfg}
}

type scoredMeal struct {
	meal     *Meal
	semantic int
}

// Find 找不到合適食譜時回傳 nil；外部服務錯誤只記錄不回傳
func (f *ExternalFinder) Find(ctx context.Context, req NegotiateRequest) *NegotiationResult {
	if f == nil || f.source == nil {
		return nil
	}

	terms := ExtractTerms(req.Craving)
	if len(terms) == 0 {
		return nil
	}

	ids := f.candidateIDs(ctx, req.Craving, terms)
	if len(ids) == 0 {
		return nil
	}
	if f.cfg.MaxDetails > 0 && len(ids) > f.cfg.MaxDetails {
		ids = ids[:f.cfg.MaxDetails]
	}

	meals := f.fetchDetails(ctx, ids)

	scored := make([]scoredMeal, 0, len(meals))
	for _, meal := range meals {
		if meal == nil {
			continue
		}
		if ContainsAllergen(meal.Ingredients, req.Allergens) {
			common.LogDebug("外部食譜含過敏原，已排除", zap.String("meal", meal.Name))
			continue
		}
		if s := SemanticScore(meal.Name, meal.Ingredients, terms); s > 0 {
			scored = append(scored, scoredMeal{meal: meal, semantic: s})
		}
	}
	if len(scored) == 0 {
		return nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].semantic > scored[j].semantic
	})
	if f.cfg.TopK > 0 && len(scored) > f.cfg.TopK {
		scored = scored[:f.cfg.TopK]
	}

	var best *Recipe
	bestScore := -10000
	for _, sm := range scored {
		r := f.buildRecipe(ctx, sm.meal, req.TargetCalories)
		if r == nil {
			continue
		}
		total := sm.semantic*8 + CalorieAlignment(r.Calories, req.TargetCalories, req.Goal)
		if total > bestScore {
			bestScore = total
			best = r
		}
	}
	if best == nil {
		return nil
	}

	if f.cfg.Translate && f.translator != nil {
		best = f.translator.Translate(ctx, best)
		// 翻譯後的食材可能才露出過敏原名稱
		if ContainsAllergen(best.Ingredients, req.Allergens) {
			common.LogWarn("翻譯後的外部食譜含過敏原，改用生成",
				zap.String("craving", req.Craving),
				zap.String("title", best.Title),
			)
			return nil
		}
	}

	return &NegotiationResult{
		OriginalCraving:      req.Craving,
		Message:              externalMessage,
		Recipe:               best,
		RestaurantSearchTerm: req.Craving,
		Source:               SourceExternal,
	}
}

// candidateIDs 依名稱與食材查詢，保留首次出現的順序
func (f *ExternalFinder) candidateIDs(ctx context.Context, craving string, terms []string) []string {
	queries := []string{strings.TrimSpace(craving)}
	translated := make([]string, 0, len(terms))
	for _, t := range terms {
		translated = append(translated, TranslateTerm(t))
	}
	if q := strings.TrimSpace(strings.Join(translated, " ")); q != "" && !strings.EqualFold(q, queries[0]) {
		queries = append(queries, q)
	}

	filterTerms := ExpandTerms(terms)
	if f.cfg.MaxFilterTerms > 0 && len(filterTerms) > f.cfg.MaxFilterTerms {
		filterTerms = filterTerms[:f.cfg.MaxFilterTerms]
	}

	results := make([][]Meal, len(queries)+len(filterTerms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency())
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			meals, err := f.source.SearchByName(gctx, q)
			if err != nil {
				common.LogDebug("外部食譜名稱查詢失敗", zap.String("query", q), zap.Error(err))
				return nil
			}
			results[i] = meals
			return nil
		})
	}
	for j, term := range filterTerms {
		i := len(queries) + j
		term := term
		g.Go(func() error {
			meals, err := f.source.FilterByIngredient(gctx, term)
			if err != nil {
				common.LogDebug("外部食譜食材查詢失敗", zap.String("term", term), zap.Error(err))
				return nil
			}
			results[i] = meals
			return nil
		})
	}
	_ = g.Wait()

	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, meals := range results {
		for _, m := range meals {
			if m.ID == "" || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// fetchDetails 並行取得明細，結果順序與 ids 相同
func (f *ExternalFinder) fetchDetails(ctx context.Context, ids []string) []*Meal {
	meals := make([]*Meal, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency())
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			meal, err := f.source.LookupMeal(gctx, id)
			if err != nil {
				common.LogDebug("外部食譜明細查詢失敗", zap.String("id", id), zap.Error(err))
				return nil
			}
			meals[i] = meal
			return nil
		})
	}
	_ = g.Wait()
	return meals
}

func (f *ExternalFinder) buildRecipe(ctx context.Context, meal *Meal, target int) *Recipe {
	if len(meal.Ingredients) == 0 {
		return nil
	}

	steps := SplitSteps(meal.Instructions, f.cfg.MaxSteps)
	if len(steps) == 0 {
		steps = []string{defaultExternalStep}
	}

	calories := 0
	if f.calc != nil {
		calories = f.calc.CalculateCalories(ctx, meal.Ingredients)
	}
	if calories <= 0 {
		calories = common.MaxInt(minExternalCalories, target)
	}

	title := meal.Name
	if title == "" {
		title = "Receita sugerida"
	}

	ingredients := make([]string, len(meal.Ingredients))
	copy(ingredients, meal.Ingredients)
	return &Recipe{
		Title:       title,
		Calories:    calories,
		TimeMinutes: externalTimeMinutes,
		Ingredients: ingredients,
		Steps:       steps,
	}
}

func (f *ExternalFinder) concurrency() int {
	if f.cfg.Concurrency > 0 {
		return f.cfg.Concurrency
	}
	return 4
}
