package shops

import (
	"context"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// ModeRestaurant 查餐廳而不是商店
const ModeRestaurant = "restaurant"

const maxRadiusMeters = 20000

// FindRequest 商店搜尋請求
type FindRequest struct {
	Mode        string   `json:"mode"`
	Ingredients []string `json:"ingredients"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Radius      int      `json:"radius"`
}

// Finder 附近地點查詢（Overpass 實作）
type Finder interface {
	FindNearby(ctx context.Context, key, value string, lat, lon float64, radius int) ([]Shop, error)
}

// Service 商店搜尋服務
type Service struct {
	finder        Finder
	tagger        *Tagger
	defaultRadius int
}

// NewService 建立商店搜尋服務
func NewService(finder Finder, tagger *Tagger, cfg config.OverpassConfig) *Service {
	radius := cfg.DefaultRadius
	if radius <= 0 {
		radius = 3000
	}
	return &Service{finder: finder, tagger: tagger, defaultRadius: radius}
}

// FindShops 上游失敗時回傳空清單，只有座標不合法才回傳錯誤
func (s *Service) FindShops(ctx context.Context, req FindRequest) ([]Shop, error) {
	if !validCoordinates(req.Lat, req.Lon) {
		return nil, common.ErrInvalidRequest.WithMessage("Coordenadas inválidas.")
	}

	radius := req.Radius
	if radius <= 0 {
		radius = s.defaultRadius
	}
	if radius > maxRadiusMeters {
		radius = maxRadiusMeters
	}

	key, value := "amenity", "restaurant"
	if req.Mode != ModeRestaurant {
		key, value = "shop", s.tagger.ShopTag(ctx, req.Ingredients)
	}

	shops, err := s.finder.FindNearby(ctx, key, value, req.Lat, req.Lon, radius)
	if err != nil {
		common.LogWarn("附近商店查詢失敗",
			zap.String("key", key),
			zap.String("value", value),
			zap.Error(err),
		)
		return []Shop{}, nil
	}
	common.LogDebug("附近商店查詢完成",
		zap.String("key", key),
		zap.String("value", value),
		zap.Int("count", len(shops)),
	)
	return shops, nil
}
