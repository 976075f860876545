package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/romanzzaa/binance-watch-bot/internal/domain"
)

// Monitor - один проход мониторинга: watchlist -> батч цен -> порог -> кулдаун -> алерты.
type Monitor struct {
	watchlist domain.WatchlistRepository
	history   domain.AlertHistoryRepository
	settings  domain.SettingsRepository
	resolver  *PriceResolver
	notifier  domain.NotificationService
	logger    *slog.Logger

	// Защита от наложения циклов: медленный проход не должен
	// пересечься со следующим тиком планировщика или ручным запуском.
	running atomic.Bool

	now func() time.Time // подменяется в тестах
}

func NewMonitor(
	watchlist domain.WatchlistRepository,
	history domain.AlertHistoryRepository,
	settings domain.SettingsRepository,
	resolver *PriceResolver,
	notifier domain.NotificationService,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		watchlist: watchlist,
		history:   history,
		settings:  settings,
		resolver:  resolver,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "price_monitor")),
		now:       time.Now,
	}
}

// RunOnce выполняет один цикл проверки. Вызывается планировщиком по таймеру
// и один раз сразу при старте сервиса. Ничего не возвращает: любой сбой
// внутри цикла логируется и не валит процесс.
func (m *Monitor) RunOnce(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warn("Предыдущий цикл еще выполняется, тик пропущен")
		return
	}
	defer m.running.Store(false)

	items, err := m.watchlist.GetActive(ctx)
	if err != nil {
		m.logger.Error("Не удалось загрузить watchlist", slog.String("err", err.Error()))
		return
	}
	if len(items) == 0 {
		m.logger.Info("Watchlist пуст, проверять нечего")
		return
	}

	// Один батч на весь список: дедупликацию делает resolver
	requests := make([]domain.PriceRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, domain.PriceRequest{Symbol: item.Symbol, MarketType: item.MarketType})
	}

	started := m.now()
	prices := m.resolver.ResolveBatch(ctx, requests)
	m.logger.Info("✓ Батч цен получен",
		slog.Int("watched", len(items)),
		slog.Int("resolved", len(prices)),
		slog.Duration("took", m.now().Sub(started)))

	defaultThreshold := m.settings.PriceThreshold(ctx)
	cooldown := m.settings.AlertInterval(ctx)
	now := m.now()

	var alerts []domain.AlertEvent
	for i := range items {
		item := &items[i]

		currentPrice, ok := prices[domain.PriceKey(item.MarketType, item.Symbol)]
		if !ok {
			// Сбой upstream или неизвестный символ - пропуск до следующего цикла
			m.logger.Warn("Цена недоступна в этом цикле",
				slog.String("symbol", item.Symbol),
				slog.String("market", string(item.MarketType)))
			continue
		}

		change := item.ChangePercent(currentPrice)
		threshold := item.EffectiveThreshold(defaultThreshold)
		if change.LessThan(threshold) {
			continue
		}
		if !m.cooldownPassed(item, cooldown, now) {
			continue
		}

		m.logger.Info("🚀 Порог пробит",
			slog.String("symbol", item.Symbol),
			slog.String("change", change.StringFixed(2)+"%"),
			slog.String("threshold", threshold.String()+"%"))

		event := domain.AlertEvent{
			WatchItemID:   item.ID,
			ChatID:        item.ChatID,
			Symbol:        item.Symbol,
			MarketType:    item.MarketType,
			OldPrice:      item.ReferencePrice,
			NewPrice:      currentPrice,
			ChangePercent: change,
			Timestamp:     now,
		}
		event.Message = formatAlertMessage(event)
		alerts = append(alerts, event)
	}

	if len(alerts) == 0 {
		m.logger.Info("Изменений выше порога нет")
		return
	}
	m.dispatch(ctx, alerts)
}

// cooldownPassed - жесткий нижний порог между алертами одного элемента,
// никакого экспоненциального backoff.
func (m *Monitor) cooldownPassed(item *domain.WatchItem, cooldown time.Duration, now time.Time) bool {
	if item.LastAlertAt == nil {
		return true
	}
	return now.Sub(*item.LastAlertAt) >= cooldown
}

// dispatch отправляет алерты последовательно. Watermark двигаем только после
// успешной отправки: упавший алерт переотправится в следующем подходящем цикле.
func (m *Monitor) dispatch(ctx context.Context, alerts []domain.AlertEvent) {
	for _, event := range alerts {
		if err := m.notifier.SendToChat(event.ChatID, event.Message); err != nil {
			m.logger.Error("✗ Не удалось отправить алерт",
				slog.String("symbol", event.Symbol),
				slog.Int64("chat_id", event.ChatID),
				slog.String("err", err.Error()))
			continue
		}

		if err := m.watchlist.MarkAlerted(ctx, event.WatchItemID, event.NewPrice, event.Timestamp); err != nil {
			m.logger.Error("Не удалось сохранить watermark алерта",
				slog.Int64("watch_item_id", event.WatchItemID),
				slog.String("err", err.Error()))
		}
		if err := m.history.Append(ctx, &event); err != nil {
			m.logger.Error("Не удалось записать историю алертов",
				slog.Int64("watch_item_id", event.WatchItemID),
				slog.String("err", err.Error()))
		}

		m.logger.Info("✓ Алерт отправлен",
			slog.String("symbol", event.Symbol),
			slog.Int64("chat_id", event.ChatID))
	}
}

// --- Formatting ---

func formatAlertMessage(e domain.AlertEvent) string {
	direction := "📉 Падение"
	if e.Rising() {
		direction = "📈 Рост"
	}

	return fmt.Sprintf(
		"🔔 <b>Изменение цены</b>\n\n"+
			"Инструмент: <b>%s</b>\n"+
			"Рынок: %s\n"+
			"━━━━━━━━━━━━\n"+
			"Базовая цена: $%s\n"+
			"Текущая цена: $%s\n"+
			"Изменение: %s %s%%\n"+
			"━━━━━━━━━━━━\n"+
			"⏰ %s",
		e.Symbol,
		marketTypeName(e.MarketType),
		e.OldPrice.StringFixed(8),
		e.NewPrice.StringFixed(8),
		direction,
		e.ChangePercent.StringFixed(2),
		e.Timestamp.Format("2006-01-02 15:04:05"),
	)
}

func marketTypeName(mt domain.MarketType) string {
	switch mt {
	case domain.MarketSpot:
		return "Спот"
	case domain.MarketFutures:
		return "Фьючерсы"
	case domain.MarketAlpha:
		return "Alpha"
	}
	return string(mt)
}
