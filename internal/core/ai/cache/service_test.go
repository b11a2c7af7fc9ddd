package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"nutrition-api/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceWithoutRedisIsNil(t *testing.T) {
	svc, err := NewService(config.CacheConfig{Enabled: true})
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = NewService(config.CacheConfig{Enabled: false, RedisAddr: "localhost:6379"})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestNilServiceIsNoop(t *testing.T) {
	var svc *Service
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "arroz", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(ctx, "arroz", []string{"x"}))
	assert.NoError(t, svc.Ping(ctx))
	assert.NoError(t, svc.Close())
}

func TestNewServiceUnreachableRedis(t *testing.T) {
	_, err := NewService(config.CacheConfig{Enabled: true, RedisAddr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis")
}

func TestServiceSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	svc := NewServiceWithClient(client, time.Minute)
	defer svc.Close()

	var out map[string]float64
	hit, err := svc.Get(context.Background(), "ovo", &out)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, svc.Set(context.Background(), "ovo", map[string]float64{"kcal": 155}))
}

func TestGenerateKeyIsStableAndOpaque(t *testing.T) {
	svc := &Service{}
	key := svc.generateKey("openfoodfacts|frango|5")
	assert.Equal(t, key, svc.generateKey("openfoodfacts|frango|5"))
	assert.NotEqual(t, key, svc.generateKey("usda|frango|5"))
	assert.True(t, strings.HasPrefix(key, "nutrition:lookup:"))
	assert.NotContains(t, key, "frango")
}
