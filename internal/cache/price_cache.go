// Package cache содержит два in-memory кэша цен с TTL.
//
// KeyedCache хранит по записи на (market, symbol), SnapshotCache - целый
// снимок фьючерсного рынка. Это два разных жизненных цикла: фьючерсный API
// не умеет отдавать подмножество, поэтому кэшируется и инвалидируется весь
// снимок разом.
package cache

import (
	"sync"
	"time"

	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultTTL ограничивает устаревание одной гранулой опроса
// и снимает нагрузку с upstream.
const DefaultTTL = 10 * time.Second

type entry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// KeyedCache - кэш цен по ключу "market:SYMBOL".
// Протухшие записи не вычищаются фоном, а отсекаются при чтении.
type KeyedCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time // подменяется в тестах
}

func NewKeyedCache(ttl time.Duration) *KeyedCache {
	return &KeyedCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get возвращает цену, только если запись моложе TTL
func (c *KeyedCache) Get(mt domain.MarketType, symbol string) (decimal.Decimal, bool) {
	key := domain.PriceKey(mt, symbol)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return decimal.Zero, false
	}
	return e.price, true
}

// Put сохраняет цену с fetchedAt = now, перезаписывая старую запись
func (c *KeyedCache) Put(mt domain.MarketType, symbol string, price decimal.Decimal) {
	key := domain.PriceKey(mt, symbol)

	c.mu.Lock()
	c.entries[key] = entry{price: price, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Delete удаляет одну запись (для отладки и повторной валидации символа)
func (c *KeyedCache) Delete(mt domain.MarketType, symbol string) {
	c.mu.Lock()
	delete(c.entries, domain.PriceKey(mt, symbol))
	c.mu.Unlock()
}

func (c *KeyedCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *KeyedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
