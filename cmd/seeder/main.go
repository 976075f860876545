package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/romanzzaa/binance-watch-bot/internal/config"
	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/romanzzaa/binance-watch-bot/internal/infrastructure/database"
	"github.com/shopspring/decimal"

	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
)

// Схема и стартовые настройки. Выполняется идемпотентно.
const schema = `
CREATE TABLE IF NOT EXISTS watchlists (
	id               BIGSERIAL PRIMARY KEY,
	chat_id          BIGINT      NOT NULL,
	symbol           TEXT        NOT NULL,
	market_type      TEXT        NOT NULL,
	reference_price  NUMERIC     NOT NULL,
	price_threshold  NUMERIC,
	last_alert_price NUMERIC,
	last_alert_at    TIMESTAMPTZ,
	added_by         TEXT        NOT NULL DEFAULT '',
	is_active        BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (chat_id, symbol, market_type)
);

CREATE TABLE IF NOT EXISTS alert_history (
	id             BIGSERIAL PRIMARY KEY,
	watchlist_id   BIGINT      NOT NULL,
	chat_id        BIGINT      NOT NULL,
	symbol         TEXT        NOT NULL,
	market_type    TEXT        NOT NULL,
	old_price      NUMERIC     NOT NULL,
	new_price      NUMERIC     NOT NULL,
	change_percent NUMERIC     NOT NULL,
	message        TEXT,
	sent_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_history_chat ON alert_history (chat_id, sent_at DESC);

CREATE TABLE IF NOT EXISTS config (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	description TEXT,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.NewConnection(database.Config{
		Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser,
		Password: cfg.DBPassword, DBName: cfg.DBName, SSLMode: cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()

	// --- ШАГ 1: Схема ---
	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("✅ Schema applied")

	// --- ШАГ 2: Дефолтные настройки ---
	// INSERT без перезаписи: существующие значения админки не трогаем
	defaults := []struct{ key, value, desc string }{
		{database.KeyPriceThreshold, "5", "Дефолтный порог изменения цены (проценты)"},
		{database.KeyCheckInterval, "60", "Интервал проверки цен (секунды)"},
		{database.KeyAlertInterval, "1800", "Минимальный интервал между алертами (секунды)"},
	}
	for _, d := range defaults {
		query := `INSERT INTO config (key, value, description) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`
		if _, err := db.ExecContext(ctx, query, d.key, d.value, d.desc); err != nil {
			log.Fatalf("Failed to seed config %s: %v", d.key, err)
		}
	}
	log.Println("✅ Default settings seeded")

	if cfg.Env != "local" {
		return
	}

	// --- ШАГ 3: Тестовый элемент watchlist (только локально) ---
	watchRepo := database.NewWatchlistRepository(db, logger)
	existing, _ := watchRepo.GetActive(ctx)
	if len(existing) > 0 {
		log.Printf("[Seeder] Found %d watch items. Skipping demo item.", len(existing))
		return
	}

	demo := &domain.WatchItem{
		ChatID:         12345, // тестовая группа
		Symbol:         "BTCUSDT",
		MarketType:     domain.MarketSpot,
		ReferencePrice: decimal.NewFromInt(100000),
		AddedBy:        "seeder",
	}
	if _, err := watchRepo.Upsert(ctx, demo); err != nil {
		log.Printf("⚠️ Failed to create demo watch item: %v", err)
	} else {
		log.Printf("✅ Demo watch item created! ID: %d", demo.ID)
	}
}
