package cache

import (
	"testing"
	"time"

	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/shopspring/decimal"
)

func TestKeyedCacheGetAfterPut(t *testing.T) {
	c := NewKeyedCache(10 * time.Second)

	c.Put(domain.MarketSpot, "btcusdt", decimal.NewFromInt(50000))

	price, ok := c.Get(domain.MarketSpot, "BTCUSDT")
	if !ok {
		t.Fatal("expected cache hit right after put")
	}
	if !price.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("expected 50000, got %s", price)
	}
}

func TestKeyedCacheExpiresAfterTTL(t *testing.T) {
	c := NewKeyedCache(10 * time.Second)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put(domain.MarketSpot, "BTCUSDT", decimal.NewFromInt(50000))

	// За мгновение до TTL запись еще жива
	c.now = func() time.Time { return now.Add(10*time.Second - time.Millisecond) }
	if _, ok := c.Get(domain.MarketSpot, "BTCUSDT"); !ok {
		t.Fatal("entry must still be valid just before TTL")
	}

	// Ровно на TTL - уже нет
	c.now = func() time.Time { return now.Add(10 * time.Second) }
	if _, ok := c.Get(domain.MarketSpot, "BTCUSDT"); ok {
		t.Fatal("entry must be stale at TTL")
	}
}

func TestKeyedCacheMarketNamespaces(t *testing.T) {
	c := NewKeyedCache(10 * time.Second)

	c.Put(domain.MarketSpot, "BTCUSDT", decimal.NewFromInt(100))
	c.Put(domain.MarketAlpha, "BTCUSDT", decimal.NewFromInt(200))

	spot, _ := c.Get(domain.MarketSpot, "BTCUSDT")
	alpha, _ := c.Get(domain.MarketAlpha, "BTCUSDT")
	if spot.Equal(alpha) {
		t.Fatal("spot and alpha namespaces must be independent")
	}
	if _, ok := c.Get(domain.MarketFutures, "BTCUSDT"); ok {
		t.Fatal("futures namespace must be empty")
	}
}

func TestKeyedCacheDeleteAndClear(t *testing.T) {
	c := NewKeyedCache(10 * time.Second)

	c.Put(domain.MarketSpot, "BTCUSDT", decimal.NewFromInt(1))
	c.Put(domain.MarketSpot, "ETHUSDT", decimal.NewFromInt(2))

	c.Delete(domain.MarketSpot, "BTCUSDT")
	if _, ok := c.Get(domain.MarketSpot, "BTCUSDT"); ok {
		t.Fatal("deleted entry must be absent")
	}
	if _, ok := c.Get(domain.MarketSpot, "ETHUSDT"); !ok {
		t.Fatal("other entries must survive Delete")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d entries", c.Len())
	}
}

func TestSnapshotCacheWholeLifecycle(t *testing.T) {
	c := NewSnapshotCache(10 * time.Second)

	if _, ok := c.Get(); ok {
		t.Fatal("fresh snapshot cache must be empty")
	}

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put(map[string]decimal.Decimal{
		"BTCUSDT": decimal.NewFromInt(50000),
		"ETHUSDT": decimal.NewFromInt(3000),
	})

	snap, ok := c.Get()
	if !ok || len(snap) != 2 {
		t.Fatalf("expected live snapshot with 2 instruments, ok=%v len=%d", ok, len(snap))
	}

	// Снимок протухает целиком, а не по-символьно
	c.now = func() time.Time { return now.Add(10 * time.Second) }
	if _, ok := c.Get(); ok {
		t.Fatal("snapshot must expire as a whole at TTL")
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	c := NewSnapshotCache(10 * time.Second)
	c.Put(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(1)})

	c.Invalidate()
	if _, ok := c.Get(); ok {
		t.Fatal("invalidated snapshot must be absent")
	}
}
