package binance

import "github.com/shopspring/decimal"

// tickerDTO - элемент ответа /ticker/price (и спот, и фьючерсы).
// Binance отдает цену строкой, decimal разбирает ее без потерь.
type tickerDTO struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// errorDTO - тело ответа при не-2xx статусе
type errorDTO struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
