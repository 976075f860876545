package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultSpotBaseURL    = "https://api.binance.com"
	DefaultFuturesBaseURL = "https://fapi.binance.com"

	spotTickerPath    = "/api/v3/ticker/price"
	futuresTickerPath = "/fapi/v1/ticker/price"
)

// Client - клиент публичных тикерных эндпоинтов Binance.
// Подпись не нужна: мы потребляем только открытые рыночные данные.
type Client struct {
	spotBaseURL    string
	futuresBaseURL string
	httpClient     *http.Client
}

func NewClient(spotBaseURL, futuresBaseURL string, timeout time.Duration) *Client {
	if spotBaseURL == "" {
		spotBaseURL = DefaultSpotBaseURL
	}
	if futuresBaseURL == "" {
		futuresBaseURL = DefaultFuturesBaseURL
	}
	return &Client{
		spotBaseURL:    spotBaseURL,
		futuresBaseURL: futuresBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// --- Implementation of MarketDataProvider ---

// SpotPrices запрашивает цены списка символов одним вызовом.
// Формат параметра: symbols=["BTCUSDT","ETHUSDT"] (URL-encoded JSON массив).
// Неизвестные бирже символы просто отсутствуют в ответе - это не ошибка.
func (c *Client) SpotPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		upper = append(upper, strings.ToUpper(s))
	}

	symbolsJSON, err := json.Marshal(upper)
	if err != nil {
		return nil, fmt.Errorf("marshal symbols: %w", err)
	}

	query := url.Values{}
	query.Set("symbols", string(symbolsJSON))

	var tickers []tickerDTO
	if err := c.getJSON(ctx, c.spotBaseURL+spotTickerPath+"?"+query.Encode(), &tickers); err != nil {
		return nil, fmt.Errorf("spot batch ticker: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		result[t.Symbol] = t.Price
	}
	return result, nil
}

// FuturesSnapshot забирает ВЕСЬ фьючерсный рынок одним вызовом.
// Фильтрации по символам у этого эндпоинта нет, ответ - сотни инструментов,
// поэтому вызывающий обязан кэшировать снимок целиком.
func (c *Client) FuturesSnapshot(ctx context.Context) (map[string]decimal.Decimal, error) {
	var tickers []tickerDTO
	if err := c.getJSON(ctx, c.futuresBaseURL+futuresTickerPath, &tickers); err != nil {
		return nil, fmt.Errorf("futures snapshot: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		result[t.Symbol] = t.Price
	}
	return result, nil
}

// --- Single-symbol lookups (валидация и legacy-запросы) ---

func (c *Client) SpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return c.singlePrice(ctx, c.spotBaseURL+spotTickerPath, symbol)
}

func (c *Client) FuturesPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return c.singlePrice(ctx, c.futuresBaseURL+futuresTickerPath, symbol)
}

func (c *Client) singlePrice(ctx context.Context, endpoint, symbol string) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))

	var ticker tickerDTO
	if err := c.getJSON(ctx, endpoint+"?"+query.Encode(), &ticker); err != nil {
		return decimal.Zero, err
	}
	return ticker.Price, nil
}

// ValidateSymbol проверяет существование символа на момент добавления в watchlist.
// Если тип рынка не задан, пробуем по порядку: спот, затем фьючерсы.
// Alpha валидируется по споту - источник цены у них общий.
func (c *Client) ValidateSymbol(ctx context.Context, symbol string, mt domain.MarketType) (domain.MarketType, decimal.Decimal, error) {
	probe := func(resolved domain.MarketType) (decimal.Decimal, error) {
		if resolved == domain.MarketFutures {
			return c.FuturesPrice(ctx, symbol)
		}
		return c.SpotPrice(ctx, symbol)
	}

	if mt != "" {
		price, err := probe(mt)
		if err != nil {
			return "", decimal.Zero, fmt.Errorf("symbol %s not found on %s: %w", symbol, mt, err)
		}
		return mt, price, nil
	}

	if price, err := probe(domain.MarketSpot); err == nil {
		return domain.MarketSpot, price, nil
	}
	if price, err := probe(domain.MarketFutures); err == nil {
		return domain.MarketFutures, price, nil
	}
	return "", decimal.Zero, fmt.Errorf("symbol %s not found on spot or futures", symbol)
}

// --- Private Helpers ---

func (c *Client) getJSON(ctx context.Context, fullURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorDTO
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return fmt.Errorf("binance api error: [%d] %s", apiErr.Code, apiErr.Msg)
		}
		return fmt.Errorf("binance http error: %s", resp.Status)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %v | Body: %s", err, string(body))
	}
	return nil
}
