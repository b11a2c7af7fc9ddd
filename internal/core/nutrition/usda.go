package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// FoodData Central 營養素編號
const (
	usdaEnergyKcal        = 1008
	usdaEnergyAtwaterGen  = 2047
	usdaEnergyAtwaterSpec = 2048
	usdaProtein           = 1003
	usdaFat               = 1004
	usdaCarbs             = 1005
)

// USDA FoodData Central foods/search
type USDA struct {
	http   *resty.Client
	apiKey string
}

type usdaResponse struct {
	Foods []struct {
		Description   string `json:"description"`
		FoodNutrients []struct {
			NutrientID int     `json:"nutrientId"`
			UnitName   string  `json:"unitName"`
			Value      float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

// NewUSDA 建立 USDA 搜尋器
func NewUSDA(cfg config.ProviderConfig, timeout time.Duration) *USDA {
	return &USDA{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout),
		apiKey: cfg.APIKey,
	}
}

// Name 來源名稱
func (u *USDA) Name() string { return SourceUSDA }

// Search USDA 的數值本身就是每 100g
func (u *USDA) Search(ctx context.Context, query string, pageSize int) ([]FoodItem, error) {
	start := time.Now()
	resp, err := u.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"pageSize": strconv.Itoa(pageSize),
			"api_key":  u.apiKey,
		}).
		Get("/foods/search")
	duration := time.Since(start)

	if err != nil {
		observe(u.Name(), duration, err, 0)
		return nil, fmt.Errorf("usda request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("usda returned status %d", resp.StatusCode())
		observe(u.Name(), duration, err, 0)
		return nil, err
	}

	var parsed usdaResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		observe(u.Name(), duration, err, 0)
		return nil, fmt.Errorf("failed to parse usda response: %w", err)
	}

	items := make([]FoodItem, 0, len(parsed.Foods))
	for _, f := range parsed.Foods {
		item := FoodItem{Name: f.Description, Source: SourceUSDA}
		for _, n := range f.FoodNutrients {
			switch n.NutrientID {
			case usdaEnergyKcal, usdaEnergyAtwaterGen, usdaEnergyAtwaterSpec:
				if item.CaloriesPer100g > 0 {
					continue
				}
				kcal := n.Value
				if strings.EqualFold(n.UnitName, "kj") {
					kcal = kcal / 4.184
				}
				item.CaloriesPer100g = common.Round2(kcal)
			case usdaProtein:
				item.ProteinPer100g = n.Value
			case usdaCarbs:
				item.CarbsPer100g = n.Value
			case usdaFat:
				item.FatPer100g = n.Value
			}
		}
		if item.CaloriesPer100g <= 0 {
			continue
		}
		if item.Name == "" {
			item.Name = query
		}
		items = append(items, item)
	}

	observe(u.Name(), duration, nil, len(items))
	return items, nil
}
