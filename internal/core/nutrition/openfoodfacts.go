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

// OpenFoodFacts /cgi/search.pl 搜尋
type OpenFoodFacts struct {
	http *resty.Client
}

type offResponse struct {
	Products []struct {
		ProductName   string `json:"product_name"`
		ProductNamePT string `json:"product_name_pt"`
		Nutriments    struct {
			EnergyKcal100g flexFloat `json:"energy-kcal_100g"`
			Energy100g     flexFloat `json:"energy_100g"`
			Proteins100g   flexFloat `json:"proteins_100g"`
			Carbs100g      flexFloat `json:"carbohydrates_100g"`
			Fat100g        flexFloat `json:"fat_100g"`
		} `json:"nutriments"`
	} `json:"products"`
}

// NewOpenFoodFacts 建立 OpenFoodFacts 搜尋器
func NewOpenFoodFacts(cfg config.ProviderConfig, timeout time.Duration) *OpenFoodFacts {
	return &OpenFoodFacts{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("User-Agent", "nutrition-api/1.0"),
	}
}

// Name 來源名稱
func (o *OpenFoodFacts) Name() string { return SourceOpenFoodFacts }

// Search 回傳每 100g 的營養資料，沒有熱量的商品會被略過
func (o *OpenFoodFacts) Search(ctx context.Context, query string, pageSize int) ([]FoodItem, error) {
	start := time.Now()
	resp, err := o.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  query,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     strconv.Itoa(pageSize),
		}).
		Get("/cgi/search.pl")
	duration := time.Since(start)

	if err != nil {
		observe(o.Name(), duration, err, 0)
		return nil, fmt.Errorf("openfoodfacts request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("openfoodfacts returned status %d", resp.StatusCode())
		observe(o.Name(), duration, err, 0)
		return nil, err
	}

	var parsed offResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		observe(o.Name(), duration, err, 0)
		return nil, fmt.Errorf("failed to parse openfoodfacts response: %w", err)
	}

	items := make([]FoodItem, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		kcal := float64(p.Nutriments.EnergyKcal100g)
		if kcal <= 0 && p.Nutriments.Energy100g > 0 {
			kcal = float64(p.Nutriments.Energy100g) / 4.184
		}
		if kcal <= 0 {
			continue
		}
		name := strings.TrimSpace(p.ProductNamePT)
		if name == "" {
			name = strings.TrimSpace(p.ProductName)
		}
		if name == "" {
			name = query
		}
		items = append(items, FoodItem{
			Name:            name,
			CaloriesPer100g: common.Round2(kcal),
			ProteinPer100g:  common.Round2(float64(p.Nutriments.Proteins100g)),
			CarbsPer100g:    common.Round2(float64(p.Nutriments.Carbs100g)),
			FatPer100g:      common.Round2(float64(p.Nutriments.Fat100g)),
			Source:          SourceOpenFoodFacts,
		})
	}

	observe(o.Name(), duration, nil, len(items))
	return items, nil
}
