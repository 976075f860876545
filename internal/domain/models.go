package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// --- Enums & Constants ---

type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures" // USDT-M фьючерсы
	MarketAlpha   MarketType = "alpha"   // Alpha-инструменты: цена берется со спота, кэш - отдельный
)

func (m MarketType) Valid() bool {
	switch m {
	case MarketSpot, MarketFutures, MarketAlpha:
		return true
	}
	return false
}

// PriceKey - составной ключ "marketType:SYMBOL" для кэша и результата батча.
// Символ всегда нормализуется в верхний регистр.
func PriceKey(mt MarketType, symbol string) string {
	return string(mt) + ":" + strings.ToUpper(symbol)
}

// --- Entities (Сущности БД) ---

// WatchItem - наблюдаемый инструмент одной группы
type WatchItem struct {
	ID         int64
	ChatID     int64 // Telegram-группа, куда шлем алерты
	Symbol     string
	MarketType MarketType

	// Базовая цена, от которой считаем отклонение.
	// Обновляется только явным повторным /watch, никогда - тиком цены.
	ReferencePrice decimal.Decimal

	// Персональный порог в процентах. Если не задан - берется глобальный из настроек.
	Threshold decimal.NullDecimal

	// Watermark последнего алерта (для кулдауна)
	LastAlertPrice decimal.NullDecimal
	LastAlertAt    *time.Time

	AddedBy   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveThreshold возвращает порог элемента или глобальный дефолт
func (w WatchItem) EffectiveThreshold(def decimal.Decimal) decimal.Decimal {
	if w.Threshold.Valid && w.Threshold.Decimal.IsPositive() {
		return w.Threshold.Decimal
	}
	return def
}

// ChangePercent - |current - reference| / reference * 100.
// Всегда неотрицательный: направление движения влияет только на текст сообщения.
func (w WatchItem) ChangePercent(current decimal.Decimal) decimal.Decimal {
	if w.ReferencePrice.IsZero() {
		return decimal.Zero
	}
	return current.Sub(w.ReferencePrice).
		Div(w.ReferencePrice).
		Mul(decimal.NewFromInt(100)).
		Abs()
}

// --- Value Objects ---

// PriceRequest - один запрос цены внутри батча
type PriceRequest struct {
	Symbol     string
	MarketType MarketType
}

func (r PriceRequest) Key() string {
	return PriceKey(r.MarketType, r.Symbol)
}
