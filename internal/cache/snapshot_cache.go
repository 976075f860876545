package cache

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotCache - кэш полного снимка фьючерсного рынка (сотни инструментов).
// Инвалидируется целиком, по-символьного TTL нет.
type SnapshotCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	data      map[string]decimal.Decimal
	fetchedAt time.Time
	now       func() time.Time
}

func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get возвращает снимок, если он еще жив.
// Снимок отдается как есть: после Put его никто не мутирует.
func (c *SnapshotCache) Get() (map[string]decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.data, true
}

func (c *SnapshotCache) Put(data map[string]decimal.Decimal) {
	c.mu.Lock()
	c.data = data
	c.fetchedAt = c.now()
	c.mu.Unlock()
}

func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.data = nil
	c.mu.Unlock()
}
