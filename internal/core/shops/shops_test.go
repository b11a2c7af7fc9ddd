package shops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nutrition-api/internal/core/ai/llm/llmtest"
	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(38.7223, -9.1393, 38.7223, -9.1393), 1e-9)
	// Lisboa → Porto
	assert.InDelta(t, 274000, Haversine(38.7223, -9.1393, 41.1579, -8.6291), 2000)
	// 一度緯度約 111.2 km
	assert.InDelta(t, 111195, Haversine(0, 0, 1, 0), 1)
	assert.InDelta(t, Haversine(10, 20, 11, 21), Haversine(11, 21, 10, 20), 1e-6)
}

func TestSanitizeTag(t *testing.T) {
	cases := map[string]string{
		"supermarket":          "supermarket",
		" 'Greengrocer'. ":     "greengrocer",
		"health food":          "health_food",
		"butcher\nexplanation": "butcher",
		"123!!":                "",
		"":                     "",
		`"]; out; nwr["x`:      "out_nwrx",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeTag(in), in)
	}
}

func TestTagger(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply("Butcher."), nil).Once()
	assert.Equal(t, "butcher", NewTagger(m).ShopTag(context.Background(), []string{"picanha", "chouriço"}))

	req := m.Requests()[0]
	assert.Equal(t, 10, req.MaxTokens)
	assert.False(t, req.JSONMode)

	failing := new(llmtest.MockCompleter)
	failing.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()
	assert.Equal(t, DefaultShopTag, NewTagger(failing).ShopTag(context.Background(), []string{"leite"}))

	assert.Equal(t, DefaultShopTag, NewTagger(nil).ShopTag(context.Background(), []string{"leite"}))
	assert.Equal(t, DefaultShopTag, NewTagger(m).ShopTag(context.Background(), nil))
}

const overpassBody = `{
  "elements": [
    {"type": "node", "lat": 38.7300, "lon": -9.1400, "tags": {"name": "Mercearia Longe"}},
    {"type": "way", "center": {"lat": 38.7225, "lon": -9.1395}, "tags": {"name": "Talho Perto"}},
    {"type": "node", "lat": 38.7240, "lon": -9.1393, "tags": {}},
    {"type": "relation", "tags": {"name": "Sem coordenadas"}}
  ]
}`

func newOverpassServer(t *testing.T, status int, body string, gotQuery *string) *Overpass {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.Query().Get("data")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewOverpass(config.OverpassConfig{BaseURL: srv.URL + "/api/interpreter", Timeout: 2 * time.Second})
}

func TestOverpass_FindNearby(t *testing.T) {
	var query string
	o := newOverpassServer(t, http.StatusOK, overpassBody, &query)

	shops, err := o.FindNearby(context.Background(), "shop", "butcher", 38.7223, -9.1393, 1500)
	require.NoError(t, err)
	require.Len(t, shops, 3)

	assert.Equal(t, `[out:json][timeout:90];nwr["shop"="butcher"](around:1500,38.7223,-9.1393);out center;`, query)
	assert.Equal(t, "Talho Perto", shops[0].Name)
	assert.Equal(t, 38.7225, shops[0].Lat)
	assert.Equal(t, unknownShopName, shops[1].Name)
	assert.Equal(t, "Mercearia Longe", shops[2].Name)
	for i := 1; i < len(shops); i++ {
		assert.LessOrEqual(t, shops[i-1].Distance, shops[i].Distance)
	}
	assert.Equal(t, common.Round2(shops[1].Distance), shops[1].Distance)
}

func TestOverpass_Errors(t *testing.T) {
	_, err := newOverpassServer(t, http.StatusGatewayTimeout, "busy", nil).
		FindNearby(context.Background(), "shop", "bakery", 0, 0, 100)
	assert.Error(t, err)

	_, err = newOverpassServer(t, http.StatusOK, "<html>", nil).
		FindNearby(context.Background(), "shop", "bakery", 0, 0, 100)
	assert.Error(t, err)
}

// stubFinder 記錄查詢參數
type stubFinder struct {
	key, value string
	radius     int
	shops      []Shop
	err        error
}

func (s *stubFinder) FindNearby(_ context.Context, key, value string, _, _ float64, radius int) ([]Shop, error) {
	s.key, s.value, s.radius = key, value, radius
	return s.shops, s.err
}

func TestService_FindShops(t *testing.T) {
	cfg := config.OverpassConfig{DefaultRadius: 3000}

	t.Run("restaurant mode skips the tagger", func(t *testing.T) {
		m := new(llmtest.MockCompleter)
		f := &stubFinder{shops: []Shop{{Name: "Tasca", Distance: 10}}}
		shops, err := NewService(f, NewTagger(m), cfg).FindShops(context.Background(), FindRequest{Mode: ModeRestaurant, Lat: 38.7, Lon: -9.1})
		require.NoError(t, err)
		assert.Len(t, shops, 1)
		assert.Equal(t, "amenity", f.key)
		assert.Equal(t, "restaurant", f.value)
		assert.Equal(t, 3000, f.radius)
		m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("shop mode uses the inferred tag", func(t *testing.T) {
		m := new(llmtest.MockCompleter)
		m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply("greengrocer"), nil).Once()
		f := &stubFinder{}
		_, err := NewService(f, NewTagger(m), cfg).FindShops(context.Background(), FindRequest{
			Mode: "shop", Ingredients: []string{"alface", "tomate"}, Lat: 38.7, Lon: -9.1, Radius: 99999,
		})
		require.NoError(t, err)
		assert.Equal(t, "shop", f.key)
		assert.Equal(t, "greengrocer", f.value)
		assert.Equal(t, maxRadiusMeters, f.radius)
	})

	t.Run("upstream failure yields an empty list", func(t *testing.T) {
		f := &stubFinder{err: errors.New("overpass down")}
		shops, err := NewService(f, NewTagger(nil), cfg).FindShops(context.Background(), FindRequest{Lat: 1, Lon: 1})
		require.NoError(t, err)
		assert.NotNil(t, shops)
		assert.Empty(t, shops)
		assert.Equal(t, DefaultShopTag, f.value)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		_, err := NewService(&stubFinder{}, nil, cfg).FindShops(context.Background(), FindRequest{Lat: 91, Lon: 0})
		assert.True(t, errors.Is(err, common.ErrInvalidRequest))
	})
}
