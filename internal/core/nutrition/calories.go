package nutrition

import (
	"context"
	"fmt"
	"math"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// LineCalories 單一食材行的計算結果
type LineCalories struct {
	Line     IngredientLine `json:"line"`
	Item     *FoodItem      `json:"item,omitempty"`
	Calories float64        `json:"calories"`
}

// CalorieReport 彙總結果；Estimated 表示總數來自 LLM 估算
type CalorieReport struct {
	Total     int            `json:"total"`
	Lines     []LineCalories `json:"lines"`
	Estimated bool           `json:"estimated"`
}

// Calculator 依優先順序查詢每一行食材並加總熱量
type Calculator struct {
	lookups       []Lookup
	heuristics    config.HeuristicConfig
	lookupTimeout time.Duration
	estimator     Estimator
}

// NewCalculator estimator 可為 nil（此時查表全失敗即回傳 0）
func NewCalculator(lookups []Lookup, h config.HeuristicConfig, lookupTimeout time.Duration, estimator Estimator) *Calculator {
	return &Calculator{
		lookups:       lookups,
		heuristics:    h,
		lookupTimeout: lookupTimeout,
		estimator:     estimator,
	}
}

// CalculateCalories 回傳非負整數，單行失敗不會中斷彙總
func (c *Calculator) CalculateCalories(ctx context.Context, ingredients []string) int {
	return c.Calculate(ctx, ingredients).Total
}

// Calculate 回傳含每行明細的報告
func (c *Calculator) Calculate(ctx context.Context, ingredients []string) CalorieReport {
	report := CalorieReport{Lines: make([]LineCalories, 0, len(ingredients))}

	// 本次彙總中逾時的來源
	unavailable := make(map[string]bool)

	var total float64
	for _, raw := range ingredients {
		lc, err := c.lineCalories(ctx, raw, unavailable)
		if err != nil {
			common.LogDebug("食材熱量計算失敗，以 0 計", zap.String("ingredient", raw), zap.Error(err))
		}
		report.Lines = append(report.Lines, lc)
		total += lc.Calories
	}

	if total > 0 {
		report.Total = int(math.Round(total))
		return report
	}

	if c.estimator == nil || len(ingredients) == 0 {
		return report
	}

	estimate, err := c.estimator.EstimateCalories(ctx, ingredients)
	if err != nil {
		common.LogWarn("LLM 熱量估算失敗", zap.Error(err))
		return report
	}
	if estimate > 0 {
		report.Total = estimate
		report.Estimated = true
	}
	return report
}

func (c *Calculator) lineCalories(ctx context.Context, raw string, unavailable map[string]bool) (lc LineCalories, err error) {
	defer func() {
		if r := recover(); r != nil {
			lc.Calories = 0
			err = fmt.Errorf("panic while processing ingredient: %v", r)
		}
	}()

	lc.Line = ParseLine(raw, c.heuristics)
	if lc.Line.SearchKey == "" {
		return lc, nil
	}

	item, err := c.find(ctx, lc.Line.SearchKey, unavailable)
	if item == nil {
		return lc, err
	}

	lc.Item = item
	lc.Calories = item.CaloriesPer100g * lc.Line.Multiplier
	if lc.Calories < 0 {
		lc.Calories = 0
	}
	return lc, nil
}

// find 依序嘗試每個來源，第一個熱量非零的結果勝出
func (c *Calculator) find(ctx context.Context, term string, unavailable map[string]bool) (*FoodItem, error) {
	var lastErr error
	for _, l := range c.lookups {
		name := l.Name()
		if unavailable[name] {
			continue
		}

		lookupCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.lookupTimeout > 0 {
			lookupCtx, cancel = context.WithTimeout(ctx, c.lookupTimeout)
		}
		item, err := l.Lookup(lookupCtx, term)
		cancel()

		if err != nil {
			lastErr = err
			if common.IsTimeout(err) && ctx.Err() == nil {
				unavailable[name] = true
				common.LogWarn("營養來源逾時，本次計算不再使用",
					zap.String("provider", name),
					zap.String("term", term),
				)
			}
			continue
		}
		if item != nil && item.CaloriesPer100g > 0 {
			return item, nil
		}
	}
	return nil, lastErr
}
