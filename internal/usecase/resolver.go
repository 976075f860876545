package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/romanzzaa/binance-watch-bot/internal/cache"
	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceResolver превращает N индивидуальных запросов цен в минимум вызовов API:
// не больше одного батч-запроса на спот (спот + alpha вместе) и не больше
// одного снимка фьючерсов за TTL-окно. Это главный рычаг стоимости всей системы.
type PriceResolver struct {
	provider domain.MarketDataProvider
	prices   *cache.KeyedCache
	snapshot *cache.SnapshotCache
	logger   *slog.Logger
}

func NewPriceResolver(
	provider domain.MarketDataProvider,
	prices *cache.KeyedCache,
	snapshot *cache.SnapshotCache,
	logger *slog.Logger,
) *PriceResolver {
	return &PriceResolver{
		provider: provider,
		prices:   prices,
		snapshot: snapshot,
		logger:   logger.With(slog.String("component", "price_resolver")),
	}
}

// ResolveBatch возвращает карту "market:SYMBOL" -> цена.
// Символ, который не удалось разрешить (сбой запроса или биржа его не знает),
// просто отсутствует в результате - вызывающий пропускает его до следующего цикла.
// Пустой вход не делает ни одного HTTP-вызова.
func (r *PriceResolver) ResolveBatch(ctx context.Context, requests []domain.PriceRequest) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(requests))
	if len(requests) == 0 {
		return result
	}

	// 1. Кэш-хиты забираем сразу, промахи группируем по типу рынка.
	// Сеты заодно дедуплицируют повторы одного символа.
	spotMiss := make(map[string]struct{})
	alphaMiss := make(map[string]struct{})
	futuresMiss := make(map[string]struct{})

	for _, req := range requests {
		key := req.Key()
		if _, done := result[key]; done {
			continue
		}
		if price, ok := r.prices.Get(req.MarketType, req.Symbol); ok {
			result[key] = price
			continue
		}

		symbol := strings.ToUpper(req.Symbol)
		switch req.MarketType {
		case domain.MarketSpot:
			spotMiss[symbol] = struct{}{}
		case domain.MarketAlpha:
			alphaMiss[symbol] = struct{}{}
		case domain.MarketFutures:
			futuresMiss[symbol] = struct{}{}
		default:
			r.logger.Warn("Неизвестный тип рынка, пропускаем",
				slog.String("market", string(req.MarketType)),
				slog.String("symbol", req.Symbol))
		}
	}

	// 2. Спот и alpha идут одним запросом: источник цены у них общий,
	// различается только namespace в кэше.
	r.resolveSpotFamily(ctx, spotMiss, alphaMiss, result)

	// 3. Фьючерсы: фильтруем живой снимок, при необходимости обновив его.
	r.resolveFutures(ctx, futuresMiss, result)

	return result
}

func (r *PriceResolver) resolveSpotFamily(ctx context.Context, spotMiss, alphaMiss map[string]struct{}, result map[string]decimal.Decimal) {
	if len(spotMiss)+len(alphaMiss) == 0 {
		return
	}

	union := make([]string, 0, len(spotMiss)+len(alphaMiss))
	seen := make(map[string]struct{}, len(spotMiss)+len(alphaMiss))
	for symbol := range spotMiss {
		union = append(union, symbol)
		seen[symbol] = struct{}{}
	}
	for symbol := range alphaMiss {
		if _, ok := seen[symbol]; !ok {
			union = append(union, symbol)
		}
	}

	prices, err := r.provider.SpotPrices(ctx, union)
	if err != nil {
		// Fail-soft: цикл не прерываем, затронутые элементы подождут следующего
		r.logger.Warn("Спот-запрос не удался", slog.Int("symbols", len(union)), slog.String("err", err.Error()))
		return
	}

	for symbol, price := range prices {
		if _, ok := spotMiss[symbol]; ok {
			r.prices.Put(domain.MarketSpot, symbol, price)
			result[domain.PriceKey(domain.MarketSpot, symbol)] = price
		}
		if _, ok := alphaMiss[symbol]; ok {
			r.prices.Put(domain.MarketAlpha, symbol, price)
			result[domain.PriceKey(domain.MarketAlpha, symbol)] = price
		}
	}
}

func (r *PriceResolver) resolveFutures(ctx context.Context, futuresMiss map[string]struct{}, result map[string]decimal.Decimal) {
	if len(futuresMiss) == 0 {
		return
	}

	snapshot, ok := r.snapshot.Get()
	if !ok {
		fetched, err := r.provider.FuturesSnapshot(ctx)
		if err != nil {
			r.logger.Warn("Снимок фьючерсов не удался", slog.String("err", err.Error()))
			return
		}
		r.snapshot.Put(fetched)
		r.logger.Info("Снимок фьючерсов обновлен", slog.Int("instruments", len(fetched)))
		snapshot = fetched
	}

	for symbol := range futuresMiss {
		price, found := snapshot[symbol]
		if !found {
			continue // биржа не знает такой фьючерс
		}
		r.prices.Put(domain.MarketFutures, symbol, price)
		result[domain.PriceKey(domain.MarketFutures, symbol)] = price
	}
}
