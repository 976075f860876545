package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/romanzzaa/binance-watch-bot/internal/cache"
	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// --- Fakes ---

type fakeWatchRepo struct {
	items       []domain.WatchItem
	markedID    int64
	markedPrice decimal.Decimal
	markedAt    time.Time
	marks       int
}

func (f *fakeWatchRepo) GetActive(context.Context) ([]domain.WatchItem, error) {
	out := make([]domain.WatchItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeWatchRepo) GetByChat(context.Context, int64) ([]domain.WatchItem, error) {
	return nil, nil
}

func (f *fakeWatchRepo) Upsert(context.Context, *domain.WatchItem) (bool, error) {
	return false, nil
}

func (f *fakeWatchRepo) Remove(context.Context, int64, string, domain.MarketType) (bool, error) {
	return false, nil
}

func (f *fakeWatchRepo) UpdateReferencePrice(context.Context, int64, string, domain.MarketType, decimal.Decimal) (bool, error) {
	return false, nil
}

func (f *fakeWatchRepo) MarkAlerted(_ context.Context, id int64, price decimal.Decimal, at time.Time) error {
	f.markedID = id
	f.markedPrice = price
	f.markedAt = at
	f.marks++
	// Двигаем watermark в "базе", как это делает настоящий репозиторий
	for i := range f.items {
		if f.items[i].ID == id {
			t := at
			f.items[i].LastAlertAt = &t
			f.items[i].LastAlertPrice = decimal.NewNullDecimal(price)
		}
	}
	return nil
}

type fakeHistory struct {
	events []domain.AlertEvent
}

func (f *fakeHistory) Append(_ context.Context, e *domain.AlertEvent) error {
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeHistory) RecentByChat(context.Context, int64, int) ([]domain.AlertEvent, error) {
	return nil, nil
}

type fakeSettings struct {
	threshold decimal.Decimal
	cooldown  time.Duration
}

func (f *fakeSettings) PriceThreshold(context.Context) decimal.Decimal { return f.threshold }
func (f *fakeSettings) AlertInterval(context.Context) time.Duration   { return f.cooldown }
func (f *fakeSettings) CheckInterval(context.Context) time.Duration   { return time.Minute }
func (f *fakeSettings) Set(context.Context, string, string, string) error {
	return nil
}

type fakeNotifier struct {
	fail bool
	sent []int64 // chat IDs в порядке отправки
}

func (f *fakeNotifier) SendToChat(chatID int64, _ string) error {
	if f.fail {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func (f *fakeNotifier) NotifyAdmin(string) error { return nil }

// --- Helpers ---

type monitorFixture struct {
	monitor  *Monitor
	watch    *fakeWatchRepo
	history  *fakeHistory
	notifier *fakeNotifier
	provider *fakeProvider
	clock    time.Time
}

func newMonitorFixture(items []domain.WatchItem, provider *fakeProvider) *monitorFixture {
	f := &monitorFixture{
		watch:    &fakeWatchRepo{items: items},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
		provider: provider,
		clock:    time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	resolver := NewPriceResolver(
		provider,
		cache.NewKeyedCache(time.Nanosecond), // без кэш-хитов между циклами в тестах
		cache.NewSnapshotCache(time.Nanosecond),
		testLogger(),
	)
	f.monitor = NewMonitor(
		f.watch, f.history,
		&fakeSettings{threshold: decimal.NewFromInt(5), cooldown: 1800 * time.Second},
		resolver, f.notifier, testLogger(),
	)
	f.monitor.now = func() time.Time { return f.clock }
	return f
}

// --- Tests ---

func TestRunOnceEndToEnd(t *testing.T) {
	items := []domain.WatchItem{
		{ID: 1, ChatID: 100, Symbol: "BTCUSDT", MarketType: domain.MarketSpot,
			ReferencePrice: decimal.NewFromInt(100), IsActive: true},
		{ID: 2, ChatID: 200, Symbol: "ETHUSDT", MarketType: domain.MarketFutures,
			ReferencePrice: decimal.NewFromInt(200), IsActive: true},
	}
	provider := &fakeProvider{
		spotPrices: map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(106)},
		futuresPrices: map[string]decimal.Decimal{
			"ETHUSDT": decimal.NewFromInt(200),
			"BNBUSDT": decimal.NewFromInt(50),
		},
	}
	f := newMonitorFixture(items, provider)

	f.monitor.RunOnce(context.Background())

	// BTCUSDT: 6% >= 5% - алерт; ETHUSDT: 0% - тишина
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != 100 {
		t.Fatalf("expected exactly one alert to chat 100, got %v", f.notifier.sent)
	}
	if len(f.history.events) != 1 || f.history.events[0].Symbol != "BTCUSDT" {
		t.Fatalf("expected one history event for BTCUSDT, got %v", f.history.events)
	}
	event := f.history.events[0]
	if !event.ChangePercent.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected change 6%%, got %s", event.ChangePercent)
	}
	if !event.Rising() {
		t.Fatal("106 against 100 must be a rise")
	}
	if f.watch.markedID != 1 || !f.watch.markedPrice.Equal(decimal.NewFromInt(106)) {
		t.Fatalf("watermark must move to the new price, got id=%d price=%s", f.watch.markedID, f.watch.markedPrice)
	}
}

func TestRunOnceCooldownBoundary(t *testing.T) {
	items := []domain.WatchItem{
		{ID: 1, ChatID: 100, Symbol: "BTCUSDT", MarketType: domain.MarketSpot,
			ReferencePrice: decimal.NewFromInt(100), IsActive: true},
	}
	provider := &fakeProvider{
		spotPrices: map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(106)},
	}
	f := newMonitorFixture(items, provider)

	// t0: первый алерт проходит
	f.monitor.RunOnce(context.Background())
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected first alert at t0, got %d", len(f.notifier.sent))
	}

	// t0+1799: отклонение то же, но кулдаун еще держит
	f.clock = f.clock.Add(1799 * time.Second)
	f.monitor.RunOnce(context.Background())
	if len(f.notifier.sent) != 1 {
		t.Fatalf("alert within cooldown must be suppressed, got %d", len(f.notifier.sent))
	}

	// t0+1800: ровно на границе - снова можно
	f.clock = f.clock.Add(1 * time.Second)
	f.monitor.RunOnce(context.Background())
	if len(f.notifier.sent) != 2 {
		t.Fatalf("alert at exactly cooldown must pass, got %d", len(f.notifier.sent))
	}
}

func TestRunOnceFailedDispatchKeepsWatermark(t *testing.T) {
	items := []domain.WatchItem{
		{ID: 1, ChatID: 100, Symbol: "BTCUSDT", MarketType: domain.MarketSpot,
			ReferencePrice: decimal.NewFromInt(100), IsActive: true},
	}
	provider := &fakeProvider{
		spotPrices: map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(106)},
	}
	f := newMonitorFixture(items, provider)
	f.notifier.fail = true

	f.monitor.RunOnce(context.Background())
	if f.watch.marks != 0 {
		t.Fatal("failed dispatch must not advance the watermark")
	}
	if len(f.history.events) != 0 {
		t.Fatal("failed dispatch must not be archived")
	}

	// Канал ожил - тот же самый сигнал переотправляется в следующем цикле
	f.notifier.fail = false
	f.clock = f.clock.Add(time.Minute)
	f.monitor.RunOnce(context.Background())
	if len(f.notifier.sent) != 1 || f.watch.marks != 1 {
		t.Fatalf("alert must be retried next cycle, sent=%d marks=%d", len(f.notifier.sent), f.watch.marks)
	}
}

func TestRunOnceSkipsUnresolvedPrices(t *testing.T) {
	items := []domain.WatchItem{
		{ID: 1, ChatID: 100, Symbol: "GHOSTUSDT", MarketType: domain.MarketSpot,
			ReferencePrice: decimal.NewFromInt(100), IsActive: true},
		{ID: 2, ChatID: 200, Symbol: "BTCUSDT", MarketType: domain.MarketSpot,
			ReferencePrice: decimal.NewFromInt(100), IsActive: true},
	}
	provider := &fakeProvider{
		spotPrices: map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(110)},
	}
	f := newMonitorFixture(items, provider)

	f.monitor.RunOnce(context.Background())

	// GHOSTUSDT недоступен - пропущен, цикл не падает, BTCUSDT алертится
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != 200 {
		t.Fatalf("resolvable item must still alert, got %v", f.notifier.sent)
	}
}

func TestRunOncePerItemThresholdOverride(t *testing.T) {
	items := []domain.WatchItem{
		// Глобальный порог 5%, но у элемента свой - 10%
		{ID: 1, ChatID: 100, Symbol: "BTCUSDT", MarketType: domain.MarketSpot,
			ReferencePrice: decimal.NewFromInt(100),
			Threshold:      decimal.NewNullDecimal(decimal.NewFromInt(10)),
			IsActive:       true},
	}
	provider := &fakeProvider{
		spotPrices: map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(106)},
	}
	f := newMonitorFixture(items, provider)

	f.monitor.RunOnce(context.Background())
	if len(f.notifier.sent) != 0 {
		t.Fatal("6% must not trip a 10% per-item threshold")
	}
}

func TestRunOnceEmptyWatchlistIsNoop(t *testing.T) {
	provider := &fakeProvider{}
	f := newMonitorFixture(nil, provider)

	f.monitor.RunOnce(context.Background())
	if provider.spotCalls != 0 || provider.futuresCalls != 0 {
		t.Fatal("empty watchlist must not hit the API")
	}
}
