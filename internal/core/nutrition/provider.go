package nutrition

import (
	"context"
	"time"

	"nutrition-api/internal/core/ai/cache"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

// Lookup 以單一詞查詢每 100g 營養；找不到時回傳 (nil, nil)
type Lookup interface {
	Name() string
	Lookup(ctx context.Context, term string) (*FoodItem, error)
}

// Searcher 遠端營養資料庫的搜尋能力
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, pageSize int) ([]FoodItem, error)
}

// searchLookup 把 Searcher 包裝成 Lookup，取第一筆熱量非零的結果
type searchLookup struct {
	searcher Searcher
	pageSize int
}

// AsLookup 將 Searcher 轉成 Lookup
func AsLookup(s Searcher, pageSize int) Lookup {
	return &searchLookup{searcher: s, pageSize: pageSize}
}

func (l *searchLookup) Name() string { return l.searcher.Name() }

func (l *searchLookup) Lookup(ctx context.Context, term string) (*FoodItem, error) {
	items, err := l.searcher.Search(ctx, term, l.pageSize)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].CaloriesPer100g > 0 {
			item := items[i]
			return &item, nil
		}
	}
	return nil, nil
}

// memoSearcher 兩層快取：本機 LRU，之後是共享的 redis
type memoSearcher struct {
	next   Searcher
	memory *cache.CacheManager
	shared *cache.Service
}

// Memoize 為 Searcher 加上查詢結果快取；memory 與 shared 皆可為 nil
func Memoize(next Searcher, memory *cache.CacheManager, shared *cache.Service) Searcher {
	if memory == nil && shared == nil {
		return next
	}
	return &memoSearcher{next: next, memory: memory, shared: shared}
}

func (m *memoSearcher) Name() string { return m.next.Name() }

func (m *memoSearcher) Search(ctx context.Context, query string, pageSize int) ([]FoodItem, error) {
	key := cache.Key(m.next.Name(), query, pageSize)

	if v, ok := m.memory.Get(key); ok {
		if items, ok := v.([]FoodItem); ok {
			return items, nil
		}
	}

	var items []FoodItem
	found, err := m.shared.Get(ctx, key, &items)
	if err != nil {
		common.LogWarn("讀取共享快取失敗", zap.String("鍵", key), zap.Error(err))
	}
	if found {
		m.memory.Set(key, items)
		return items, nil
	}

	items, err = m.next.Search(ctx, query, pageSize)
	if err != nil {
		return nil, err
	}

	m.memory.Set(key, items)
	if err := m.shared.Set(ctx, key, items); err != nil {
		common.LogWarn("寫入共享快取失敗", zap.String("鍵", key), zap.Error(err))
	}
	return items, nil
}

// observe 記錄外部營養來源的呼叫結果
func observe(provider string, duration time.Duration, err error, results int) {
	outcome := monitoring.OutcomeOK
	switch {
	case err != nil && common.IsTimeout(err):
		outcome = monitoring.OutcomeTimeout
	case err != nil:
		outcome = monitoring.OutcomeError
	case results == 0:
		outcome = monitoring.OutcomeEmpty
	}
	monitoring.ObserveUpstream(provider, outcome, duration)
	common.LogUpstreamCall(provider, duration, err, zap.Int("results", results))
}
