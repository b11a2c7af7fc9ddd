package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const mealDBProvider = "themealdb"

// TheMealDB 每道菜最多 20 組食材
const maxMealIngredients = 20

// Meal TheMealDB 的食譜明細
type Meal struct {
	ID           string
	Name         string
	Instructions string
	Ingredients  []string
}

// UnmarshalJSON 攤平 strIngredientN / strMeasureN
func (m *Meal) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		v, ok := raw[key]
		if !ok || v == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}

	m.ID = str("idMeal")
	m.Name = str("strMeal")
	m.Instructions = str("strInstructions")
	m.Ingredients = m.Ingredients[:0]
	for i := 1; i <= maxMealIngredients; i++ {
		ingredient := str(fmt.Sprintf("strIngredient%d", i))
		if ingredient == "" {
			continue
		}
		if lower := strings.ToLower(ingredient); lower == "none" || lower == "null" {
			continue
		}
		measure := str(fmt.Sprintf("strMeasure%d", i))
		m.Ingredients = append(m.Ingredients, strings.TrimSpace(measure+" "+ingredient))
	}
	return nil
}

type mealsResponse struct {
	Meals []Meal `json:"meals"`
}

// RecipeSource 外部食譜資料庫
type RecipeSource interface {
	SearchByName(ctx context.Context, name string) ([]Meal, error)
	FilterByIngredient(ctx context.Context, ingredient string) ([]Meal, error)
	LookupMeal(ctx context.Context, id string) (*Meal, error)
}

// MealDB TheMealDB 客戶端
type MealDB struct {
	http *resty.Client
}

// NewMealDB 建立 TheMealDB 客戶端
func NewMealDB(cfg config.MealDBConfig) *MealDB {
	return &MealDB{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout),
	}
}

// SearchByName search.php?s=
func (c *MealDB) SearchByName(ctx context.Context, name string) ([]Meal, error) {
	return c.fetch(ctx, "/search.php", "s", name)
}

// FilterByIngredient filter.php?i=，只有 id、名稱與圖片
func (c *MealDB) FilterByIngredient(ctx context.Context, ingredient string) ([]Meal, error) {
	return c.fetch(ctx, "/filter.php", "i", ingredient)
}

// LookupMeal lookup.php?i=；找不到時回傳 (nil, nil)
func (c *MealDB) LookupMeal(ctx context.Context, id string) (*Meal, error) {
	meals, err := c.fetch(ctx, "/lookup.php", "i", id)
	if err != nil || len(meals) == 0 {
		return nil, err
	}
	return &meals[0], nil
}

func (c *MealDB) fetch(ctx context.Context, path, param, value string) ([]Meal, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		Get(path)
	duration := time.Since(start)

	if err == nil && resp.StatusCode() != http.StatusOK {
		err = fmt.Errorf("themealdb returned status %d", resp.StatusCode())
	}
	var parsed mealsResponse
	if err == nil {
		if jerr := json.Unmarshal(resp.Body(), &parsed); jerr != nil {
			err = fmt.Errorf("failed to parse themealdb response: %w", jerr)
		}
	}

	outcome := monitoring.OutcomeOK
	switch {
	case common.IsTimeout(err):
		outcome = monitoring.OutcomeTimeout
	case err != nil:
		outcome = monitoring.OutcomeError
	case len(parsed.Meals) == 0:
		outcome = monitoring.OutcomeEmpty
	}
	monitoring.ObserveUpstream(mealDBProvider, outcome, duration)
	common.LogUpstreamCall(mealDBProvider, duration, err, zap.String("path", path), zap.Int("results", len(parsed.Meals)))

	if err != nil {
		return nil, err
	}
	return parsed.Meals, nil
}
