package shops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	providerOverpass = "overpass"
	unknownShopName  = "Desconhecido"
)

// Shop 附近的商店或餐廳
type Shop struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance"`
}

// Overpass OpenStreetMap Overpass API 客戶端
type Overpass struct {
	http    *resty.Client
	baseURL string
}

type overpassResponse struct {
	Elements []struct {
		Lat    *float64 `json:"lat"`
		Lon    *float64 `json:"lon"`
		Center *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"center"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// NewOverpass baseURL 為完整的 interpreter 位址
func NewOverpass(cfg config.OverpassConfig) *Overpass {
	return &Overpass{
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", "nutrition-api/1.0"),
		baseURL: cfg.BaseURL,
	}
}

// buildQuery node/way/relation 皆查詢，way 與 relation 以 center 取座標
func buildQuery(key, value string, lat, lon float64, radius int) string {
	return fmt.Sprintf(`[out:json][timeout:90];nwr["%s"="%s"](around:%d,%g,%g);out center;`, key, value, radius, lat, lon)
}

// FindNearby 依距離由近到遠排序
func (o *Overpass) FindNearby(ctx context.Context, key, value string, lat, lon float64, radius int) ([]Shop, error) {
	start := time.Now()
	resp, err := o.http.R().
		SetContext(ctx).
		SetQueryParam("data", buildQuery(key, value, lat, lon, radius)).
		Get(o.baseURL)
	duration := time.Since(start)

	if err != nil {
		observe(duration, err, 0)
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("overpass returned status %d", resp.StatusCode())
		observe(duration, err, 0)
		return nil, err
	}

	var parsed overpassResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		observe(duration, err, 0)
		return nil, fmt.Errorf("failed to parse overpass response: %w", err)
	}

	shops := make([]Shop, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		var shopLat, shopLon float64
		switch {
		case el.Lat != nil && el.Lon != nil:
			shopLat, shopLon = *el.Lat, *el.Lon
		case el.Center != nil:
			shopLat, shopLon = el.Center.Lat, el.Center.Lon
		default:
			continue
		}

		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			name = unknownShopName
		}
		shops = append(shops, Shop{
			Name:     name,
			Lat:      shopLat,
			Lon:      shopLon,
			Distance: common.Round2(Haversine(lat, lon, shopLat, shopLon)),
		})
	}

	sort.SliceStable(shops, func(i, j int) bool {
		return shops[i].Distance < shops[j].Distance
	})

	observe(duration, nil, len(shops))
	return shops, nil
}

func observe(duration time.Duration, err error, results int) {
	outcome := monitoring.OutcomeOK
	switch {
	case err != nil && common.IsTimeout(err):
		outcome = monitoring.OutcomeTimeout
	case err != nil:
		outcome = monitoring.OutcomeError
	case results == 0:
		outcome = monitoring.OutcomeEmpty
	}
	monitoring.ObserveUpstream(providerOverpass, outcome, duration)
	common.LogUpstreamCall(providerOverpass, duration, err, zap.Int("results", results))
}
