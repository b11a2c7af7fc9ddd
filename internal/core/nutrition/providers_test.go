package nutrition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nutrition-api/internal/core/ai/cache"
	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFoodFacts_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		assert.Equal(t, "iogurte grego", r.URL.Query().Get("search_terms"))
		assert.Equal(t, "3", r.URL.Query().Get("page_size"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products": [
			{"product_name": "Greek yogurt", "product_name_pt": "Iogurte grego", "nutriments": {"energy-kcal_100g": "97", "proteins_100g": 9, "carbohydrates_100g": "3,6", "fat_100g": 5}},
			{"product_name": "Iogurte kJ", "nutriments": {"energy_100g": 418.4}},
			{"product_name": "Sem energia", "nutriments": {}}
		]}`))
	}))
	defer srv.Close()

	off := NewOpenFoodFacts(config.ProviderConfig{BaseURL: srv.URL}, time.Second)
	items, err := off.Search(context.Background(), "iogurte grego", 3)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Iogurte grego", items[0].Name)
	assert.Equal(t, 97.0, items[0].CaloriesPer100g)
	assert.Equal(t, 3.6, items[0].CarbsPer100g)
	assert.Equal(t, SourceOpenFoodFacts, items[0].Source)
	assert.Equal(t, 100.0, items[1].CaloriesPer100g)
}

func TestOpenFoodFacts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	off := NewOpenFoodFacts(config.ProviderConfig{BaseURL: srv.URL}, time.Second)
	_, err := off.Search(context.Background(), "arroz", 5)
	assert.Error(t, err)
}

func TestOpenFoodFacts_TimeoutIsDetected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer srv.Close()

	off := NewOpenFoodFacts(config.ProviderConfig{BaseURL: srv.URL}, 20*time.Millisecond)
	_, err := off.Search(context.Background(), "arroz", 5)
	require.Error(t, err)
	assert.True(t, common.IsTimeout(err))
}

func TestUSDA_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/foods/search", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "chicken breast", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"foods": [
			{"description": "Chicken, breast, roasted", "foodNutrients": [
				{"nutrientId": 1003, "unitName": "G", "value": 31.0},
				{"nutrientId": 1004, "unitName": "G", "value": 3.6},
				{"nutrientId": 1005, "unitName": "G", "value": 0},
				{"nutrientId": 1008, "unitName": "KCAL", "value": 165}
			]},
			{"description": "Chicken broth", "foodNutrients": [
				{"nutrientId": 2047, "unitName": "KJ", "value": 41.84}
			]},
			{"description": "Salt", "foodNutrients": [{"nutrientId": 1003, "value": 0}]}
		]}`))
	}))
	defer srv.Close()

	usda := NewUSDA(config.ProviderConfig{BaseURL: srv.URL, APIKey: "test-key"}, time.Second)
	items, err := usda.Search(context.Background(), "chicken breast", 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, FoodItem{
		Name:            "Chicken, breast, roasted",
		CaloriesPer100g: 165,
		ProteinPer100g:  31,
		CarbsPer100g:    0,
		FatPer100g:      3.6,
		Source:          SourceUSDA,
	}, items[0])
	assert.Equal(t, 10.0, items[1].CaloriesPer100g)
}

func newFatSecretServer(t *testing.T, foods string, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 86400, "token_type": "Bearer"}`))
	})
	mux.HandleFunc("/rest/server.api", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "foods.search", r.URL.Query().Get("method"))
		_, _ = w.Write([]byte(foods))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fatSecretConfig(base string) config.FatSecretConfig {
	return config.FatSecretConfig{
		BaseURL:      base + "/rest/server.api",
		TokenURL:     base + "/connect/token",
		ClientID:     "id",
		ClientSecret: "secret",
	}
}

func TestFatSecret_SearchArray(t *testing.T) {
	var tokenCalls int32
	srv := newFatSecretServer(t, `{"foods": {"food": [
		{"food_name": "Chicken Breast", "food_description": "Per 100g - Calories: 165kcal | Fat: 3.57g | Carbs: 0.00g | Protein: 31.02g"},
		{"food_name": "Milk", "food_description": "Per 1 cup (240g) - Calories: 120kcal | Fat: 4.80g | Carbs: 11.71g | Protein: 8.05g"},
		{"food_name": "Pizza", "food_description": "Per 1 slice - Calories: 285kcal | Fat: 10g | Carbs: 36g | Protein: 12g"}
	]}}`, &tokenCalls)

	fs := NewFatSecret(fatSecretConfig(srv.URL), time.Second)
	items, err := fs.Search(context.Background(), "chicken", 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 165.0, items[0].CaloriesPer100g)
	assert.Equal(t, 31.02, items[0].ProteinPer100g)
	assert.Equal(t, 50.0, items[1].CaloriesPer100g)
	assert.Equal(t, SourceFatSecret, items[1].Source)

	_, err = fs.Search(context.Background(), "milk", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token should be cached")
}

func TestFatSecret_SearchSingleObject(t *testing.T) {
	var tokenCalls int32
	srv := newFatSecretServer(t, `{"foods": {"food": {"food_name": "Banana", "food_description": "Per 100g - Calories: 89kcal, Fat: 0.33g, Carbs: 22.84g, Protein: 1.09g"}}}`, &tokenCalls)

	fs := NewFatSecret(fatSecretConfig(srv.URL), time.Second)
	items, err := fs.Search(context.Background(), "banana", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Banana", items[0].Name)
	assert.Equal(t, 89.0, items[0].CaloriesPer100g)
}

func TestFatSecret_MissingCredentials(t *testing.T) {
	fs := NewFatSecret(config.FatSecretConfig{}, time.Second)
	_, err := fs.Search(context.Background(), "banana", 5)
	assert.ErrorIs(t, err, ErrFatSecretCredentials)
}

type countingSearcher struct {
	calls int32
	items []FoodItem
}

func (c *countingSearcher) Name() string { return "counting" }

func (c *countingSearcher) Search(context.Context, string, int) ([]FoodItem, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.items, nil
}

func TestMemoize_CachesByNormalizedQueryAndPageSize(t *testing.T) {
	inner := &countingSearcher{items: []FoodItem{{Name: "Maçã", CaloriesPer100g: 52}}}
	memo := Memoize(inner, cache.NewLRU(16, time.Minute), nil)

	for _, q := range []string{"Maçã", "maca", "  MACA "} {
		items, err := memo.Search(context.Background(), q, 5)
		require.NoError(t, err)
		assert.Equal(t, 52.0, items[0].CaloriesPer100g)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	_, _ = memo.Search(context.Background(), "maca", 10)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestMemoize_WithoutCachesReturnsInner(t *testing.T) {
	inner := &countingSearcher{}
	assert.Same(t, Searcher(inner), Memoize(inner, nil, nil))
}

func TestAsLookup_TakesFirstNonZero(t *testing.T) {
	inner := &countingSearcher{items: []FoodItem{
		{Name: "água", CaloriesPer100g: 0},
		{Name: "sumo", CaloriesPer100g: 45},
		{Name: "néctar", CaloriesPer100g: 60},
	}}
	item, err := AsLookup(inner, 5).Lookup(context.Background(), "laranja")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "sumo", item.Name)
}
