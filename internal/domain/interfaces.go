package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistRepository - хранилище наблюдаемых инструментов.
// Монитор читает список каждый цикл и двигает watermark после успешного алерта.
type WatchlistRepository interface {
	// Все активные элементы по всем группам
	GetActive(ctx context.Context) ([]WatchItem, error)

	// Элементы конкретной группы
	GetByChat(ctx context.Context, chatID int64) ([]WatchItem, error)

	// Добавить или обновить. Повторный watch того же (chat, symbol, market)
	// перезаписывает reference price и порог. Возвращает true, если было обновление.
	Upsert(ctx context.Context, item *WatchItem) (bool, error)

	// Снять с наблюдения. Возвращает true, если элемент существовал.
	Remove(ctx context.Context, chatID int64, symbol string, mt MarketType) (bool, error)

	// Явная смена базовой цены (re-watch)
	UpdateReferencePrice(ctx context.Context, chatID int64, symbol string, mt MarketType, price decimal.Decimal) (bool, error)

	// Watermark алерта: вызывается ТОЛЬКО после успешной отправки
	MarkAlerted(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error
}

// AlertHistoryRepository - архив отправленных алертов
type AlertHistoryRepository interface {
	Append(ctx context.Context, event *AlertEvent) error
	RecentByChat(ctx context.Context, chatID int64, limit int) ([]AlertEvent, error)
}

// SettingsRepository - runtime-настройки из таблицы config.
// Геттеры fail-soft: при недоступной базе возвращают дефолты.
type SettingsRepository interface {
	PriceThreshold(ctx context.Context) decimal.Decimal // процент, дефолт 5
	AlertInterval(ctx context.Context) time.Duration    // кулдаун, дефолт 30 минут
	CheckInterval(ctx context.Context) time.Duration    // период цикла, дефолт 60 секунд
	Set(ctx context.Context, key, value, description string) error
}

// MarketDataProvider - адаптер к API биржи.
// Ошибка означает сбой запроса (transient); отсутствие символа в карте -
// биржа его не знает. Вызывающий волен не различать эти случаи.
type MarketDataProvider interface {
	// Один запрос на произвольный список символов
	SpotPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)

	// Фьючерсный API не умеет фильтровать: всегда полный снимок рынка
	FuturesSnapshot(ctx context.Context) (map[string]decimal.Decimal, error)
}

// NotificationService - уведомления в Telegram
type NotificationService interface {
	SendToChat(chatID int64, message string) error
	NotifyAdmin(message string) error
}
