package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// CacheManager 有容量上限的 LRU 記憶快取，可併發存取
type CacheManager struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	store    map[string]*list.Element
	stats    cacheStats
	stop     chan struct{}
	stopOnce sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewManager 依設定建立快取；停用時回傳 nil，nil 管理器的方法皆為 no-op
func NewManager(cfg *config.Config) *CacheManager {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := NewLRU(cfg.Cache.MaxSize, cfg.Cache.TTL)
	if cfg.Cache.CleanupInterval > 0 {
		go m.startCleanup(cfg.Cache.CleanupInterval)
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("存活時間", cfg.Cache.TTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
	)
	return m
}

// NewLRU 建立 LRU；ttl <= 0 表示不過期
func NewLRU(capacity int, ttl time.Duration) *CacheManager {
	if capacity <= 0 {
		capacity = 1
	}
	return &CacheManager{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		store:    make(map[string]*list.Element, capacity),
		stop:     make(chan struct{}),
	}
}

// Key 以正規化查詢字串與頁面大小組成快取鍵
func Key(namespace, query string, pageSize int) string {
	return fmt.Sprintf("%s:%s:%d", namespace, common.NormalizeText(query), pageSize)
}

// Get 獲取緩存值並將其移到最近使用
func (m *CacheManager) Get(key string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.store[key]
	if !ok {
		m.stats.misses++
		monitoring.ObserveCache("memory", false)
		common.LogCacheMiss("memory", key)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if m.expired(entry, time.Now()) {
		m.removeElement(elem)
		m.stats.misses++
		monitoring.ObserveCache("memory", false)
		common.LogCacheMiss("memory", key)
		return nil, false
	}

	m.order.MoveToFront(elem)
	m.stats.hits++
	monitoring.ObserveCache("memory", true)
	common.LogCacheHit("memory", key)
	return entry.value, true
}

// Set 設置緩存值，超出容量時淘汰最久未使用的條目
func (m *CacheManager) Set(key string, value interface{}) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = time.Now().Add(m.ttl)
	}

	if elem, ok := m.store[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		m.order.MoveToFront(elem)
		return
	}

	m.store[key] = m.order.PushFront(&cacheEntry{key: key, value: value, expiresAt: expiresAt})

	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.removeElement(oldest)
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldest.Value.(*cacheEntry).key))
	}
}

// Len 目前條目數
func (m *CacheManager) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *CacheManager) expired(entry *cacheEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && now.After(entry.expiresAt)
}

// removeElement 呼叫端需持有鎖
func (m *CacheManager) removeElement(elem *list.Element) {
	m.order.Remove(elem)
	delete(m.store, elem.Value.(*cacheEntry).key)
	m.stats.evictions++
}

// startCleanup 定期清理過期條目
func (m *CacheManager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清理過期的緩存
func (m *CacheManager) cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for elem := m.order.Back(); elem != nil; {
		prev := elem.Prev()
		if m.expired(elem.Value.(*cacheEntry), now) {
			m.removeElement(elem)
			count++
		}
		elem = prev
	}

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int("remaining_size", m.order.Len()),
		)
	}
	return count
}

// GetStats 獲取緩存統計信息
func (m *CacheManager) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ratio := 0.0
	if total := m.stats.hits + m.stats.misses; total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"enabled":   true,
		"size":      m.order.Len(),
		"max_size":  m.capacity,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"hit_ratio": ratio,
	}
}

// Close 停止清理協程並清空快取
func (m *CacheManager) Close() error {
	if m == nil {
		return nil
	}
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.order.Init()
	m.store = make(map[string]*list.Element)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
