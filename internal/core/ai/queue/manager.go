package queue

import (
	"context"
	"sync/atomic"

	"nutrition-api/internal/core/ai/llm"
	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrQueueFull 等待中的請求已達上限
var ErrQueueFull = common.ErrServiceUnavailable.WithMessage("O assistente está ocupado. Tenta novamente daqui a pouco.")

// Status 隊列狀態
type Status struct {
	InFlight       int   `json:"in_flight"`
	Waiting        int   `json:"waiting"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 限制同時送往 LLM 的請求數，本身也是 llm.Completer
type Manager struct {
	next       llm.Completer
	slots      chan struct{}
	maxWaiting int
	waiting    int64
	processed  int64
}

// NewManager 包裝 completer
func NewManager(next llm.Completer, cfg config.LLMConfig) *Manager {
	workers := cfg.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		next:       next,
		slots:      make(chan struct{}, workers),
		maxWaiting: cfg.MaxQueue,
	}
}

// Complete 取得名額後轉送請求；排隊太長直接拒絕
func (m *Manager) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	select {
	case m.slots <- struct{}{}:
	default:
		if int(atomic.AddInt64(&m.waiting, 1)) > m.maxWaiting {
			atomic.AddInt64(&m.waiting, -1)
			common.LogWarn("LLM queue is full",
				zap.Int("workers", cap(m.slots)),
				zap.Int("max_queue_size", m.maxWaiting),
			)
			return nil, ErrQueueFull
		}

		select {
		case m.slots <- struct{}{}:
			atomic.AddInt64(&m.waiting, -1)
		case <-ctx.Done():
			atomic.AddInt64(&m.waiting, -1)
			return nil, ctx.Err()
		}
	}
	defer func() { <-m.slots }()

	completion, err := m.next.Complete(ctx, req)
	atomic.AddInt64(&m.processed, 1)
	return completion, err
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		InFlight:       len(m.slots),
		Waiting:        int(atomic.LoadInt64(&m.waiting)),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		MaxQueueSize:   m.maxWaiting,
		Workers:        cap(m.slots),
	}
}
