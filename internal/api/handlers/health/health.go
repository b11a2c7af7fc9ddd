package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const checkTimeout = 2 * time.Second

// Pinger 依賴健康檢查（資料庫、redis）
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider 快取統計
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
	Checks    map[string]string      `json:"checks,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	cache   StatsProvider
	// required 失敗時 /ready 回傳 503；optional 只回報狀態
	required map[string]Pinger
	optional map[string]Pinger
}

// NewHandler 建立健康檢查處理器
func NewHandler(version string, cache StatsProvider) *Handler {
	return &Handler{
		version:  version,
		cache:    cache,
		required: make(map[string]Pinger),
		optional: make(map[string]Pinger),
	}
}

// Require 加入必要依賴
func (h *Handler) Require(name string, p Pinger) *Handler {
	h.required[name] = p
	return h
}

// Optional 加入非必要依賴（例如 redis 第二層快取）
func (h *Handler) Optional(name string, p Pinger) *Handler {
	h.optional[name] = p
	return h
}

func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := make(map[string]string, len(h.required)+len(h.optional))
	healthy := true
	for name, p := range h.required {
		if err := p.Ping(ctx); err != nil {
			results[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	for name, p := range h.optional {
		if err := p.Ping(ctx); err != nil {
			results[name] = "degraded: " + err.Error()
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	checks, healthy := h.runChecks(c.Request.Context())
	status := "ok"
	if !healthy {
		status = "degraded"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Checks: checks,
	}
	if h.cache != nil {
		response.Cache = h.cache.GetStats()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", status),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 必要依賴都可用才算就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks, healthy := h.runChecks(c.Request.Context())
	if !healthy {
		common.LogWarn("Readiness check failed", zap.Any("checks", checks))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
