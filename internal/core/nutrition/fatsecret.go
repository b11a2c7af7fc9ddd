package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// ErrFatSecretCredentials 未設定 client id/secret
var ErrFatSecretCredentials = errors.New("fatsecret credentials not configured")

// FatSecret foods.search，營養數值藏在 food_description 字串裡
type FatSecret struct {
	http     *resty.Client
	apiURL   string
	tokenURL string
	clientID string
	secret   string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type fatSecretToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type fatSecretFood struct {
	FoodName        string `json:"food_name"`
	FoodDescription string `json:"food_description"`
}

// fatSecretFoods 只有一筆結果時 "food" 是物件而不是陣列
type fatSecretFoods []fatSecretFood

func (f *fatSecretFoods) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}
	if data[0] == '{' {
		var single fatSecretFood
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*f = fatSecretFoods{single}
		return nil
	}
	var many []fatSecretFood
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

type fatSecretResponse struct {
	Foods struct {
		Food fatSecretFoods `json:"food"`
	} `json:"foods"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewFatSecret 建立 FatSecret 搜尋器
func NewFatSecret(cfg config.FatSecretConfig, timeout time.Duration) *FatSecret {
	return &FatSecret{
		http:     resty.New().SetTimeout(timeout),
		apiURL:   cfg.BaseURL,
		tokenURL: cfg.TokenURL,
		clientID: cfg.ClientID,
		secret:   cfg.ClientSecret,
	}
}

// Name 來源名稱
func (f *FatSecret) Name() string { return SourceFatSecret }

// accessToken 取得並快取 client credentials token
func (f *FatSecret) accessToken(ctx context.Context) (string, error) {
	if f.clientID == "" || f.secret == "" {
		return "", ErrFatSecretCredentials
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token != "" && time.Now().Before(f.tokenExpiry) {
		return f.token, nil
	}

	resp, err := f.http.R().
		SetContext(ctx).
		SetBasicAuth(f.clientID, f.secret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
			"scope":      "basic",
		}).
		Post(f.tokenURL)
	if err != nil {
		return "", fmt.Errorf("fatsecret token request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("fatsecret token returned status %d", resp.StatusCode())
	}

	var tok fatSecretToken
	if err := json.Unmarshal(resp.Body(), &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("fatsecret token response invalid: %v", err)
	}

	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	f.token = tok.AccessToken
	// 提早一分鐘過期
	f.tokenExpiry = time.Now().Add(ttl - time.Minute)
	return f.token, nil
}

// Search 解析 food_description，份量不明的結果會被略過
func (f *FatSecret) Search(ctx context.Context, query string, pageSize int) ([]FoodItem, error) {
	start := time.Now()

	token, err := f.accessToken(ctx)
	if err != nil {
		observe(f.Name(), time.Since(start), err, 0)
		return nil, err
	}

	resp, err := f.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"method":            "foods.search",
			"search_expression": query,
			"max_results":       strconv.Itoa(pageSize),
			"format":            "json",
		}).
		Get(f.apiURL)
	duration := time.Since(start)

	if err != nil {
		observe(f.Name(), duration, err, 0)
		return nil, fmt.Errorf("fatsecret request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("fatsecret returned status %d", resp.StatusCode())
		observe(f.Name(), duration, err, 0)
		return nil, err
	}

	var parsed fatSecretResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		observe(f.Name(), duration, err, 0)
		return nil, fmt.Errorf("failed to parse fatsecret response: %w", err)
	}
	if parsed.Error != nil {
		err := fmt.Errorf("fatsecret error %d: %s", parsed.Error.Code, parsed.Error.Message)
		observe(f.Name(), duration, err, 0)
		return nil, err
	}

	items := make([]FoodItem, 0, len(parsed.Foods.Food))
	for _, food := range parsed.Foods.Food {
		facts, err := ParseNutrientDescription(food.FoodDescription)
		if err != nil {
			continue
		}
		per100, ok := facts.Per100g()
		if !ok || per100.Calories <= 0 {
			continue
		}
		name := food.FoodName
		if name == "" {
			name = query
		}
		items = append(items, FoodItem{
			Name:            name,
			CaloriesPer100g: common.Round2(per100.Calories),
			ProteinPer100g:  common.Round2(per100.Protein),
			CarbsPer100g:    common.Round2(per100.Carbs),
			FatPer100g:      common.Round2(per100.Fat),
			Source:          SourceFatSecret,
		})
	}

	observe(f.Name(), duration, nil, len(items))
	return items, nil
}
