package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertEvent - событие срабатывания порога. Живет один цикл мониторинга:
// создается, отправляется в группу и архивируется в alert_history.
type AlertEvent struct {
	WatchItemID   int64
	ChatID        int64
	Symbol        string
	MarketType    MarketType
	OldPrice      decimal.Decimal // reference price на момент срабатывания
	NewPrice      decimal.Decimal
	ChangePercent decimal.Decimal
	Message       string
	Timestamp     time.Time
}

// Rising - true, если цена выше базовой (для стрелки в сообщении)
func (e AlertEvent) Rising() bool {
	return e.NewPrice.GreaterThan(e.OldPrice)
}
