package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Service redis 第二層快取，多個實例共享營養查詢結果
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

// NewService 未設定 redis 位址時回傳 nil（nil Service 的方法皆為 no-op）
func NewService(cfg config.CacheConfig) (*Service, error) {
	if !cfg.Enabled || cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewServiceWithClient(client, cfg.TTL), nil
}

// NewServiceWithClient 使用既有 redis client
func NewServiceWithClient(client *redis.Client, ttl time.Duration) *Service {
	return &Service{client: client, ttl: ttl}
}

// Get 讀取並解碼 JSON；未命中回傳 false
func (s *Service) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	if s == nil || s.client == nil {
		return false, nil
	}

	data, err := s.client.Get(ctx, s.generateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			monitoring.ObserveCache("redis", false)
			common.LogCacheMiss("redis", key)
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	monitoring.ObserveCache("redis", true)
	common.LogCacheHit("redis", key)
	return true, nil
}

// Set 以 JSON 寫入
func (s *Service) Set(ctx context.Context, key string, v interface{}) error {
	if s == nil || s.client == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := s.client.Set(ctx, s.generateKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 健康檢查用
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// generateKey 生成緩存鍵
func (s *Service) generateKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return "nutrition:lookup:" + hex.EncodeToString(hash[:])
}
