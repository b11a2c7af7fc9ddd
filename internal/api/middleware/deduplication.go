package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-api/internal/pkg/common"
)

// Deduplicator 短時間內相同的 POST 請求只處理一次
type Deduplicator struct {
	mu       sync.Mutex
	requests map[string]time.Time
	window   time.Duration
}

// NewDeduplicator window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{requests: make(map[string]time.Time), window: window}
}

// seen 記錄指紋，window 內重複時回傳 true
func (d *Deduplicator) seen(fingerprint string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Prune 清除過期指紋
func (d *Deduplicator) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	now := time.Now()
	for k, t := range d.requests {
		if now.Sub(t) > 10*d.window {
			delete(d.requests, k)
			removed++
		}
	}
	return removed
}

// Deduplication 請求去重中間件；指紋包含客戶端、路徑、授權與請求體
func Deduplication(d *Deduplicator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		hasher := sha256.New()
		hasher.Write([]byte(c.ClientIP() + "|" + c.Request.URL.Path + "|" + c.GetHeader("Authorization") + "|"))
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogWarn("Failed to read request body", zap.Error(err))
				abortWithError(c, errPayloadTooLarge)
				return
			}
			hasher.Write(body)
			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}
		fingerprint := hex.EncodeToString(hasher.Sum(nil))

		if d.seen(fingerprint, time.Now()) {
			common.LogInfo("Duplicate request rejected",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			abortWithError(c, common.ErrTooManyRequests.WithMessage("Pedido repetido. Aguarda um momento."))
			return
		}

		c.Next()
	}
}
