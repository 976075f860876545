package database

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Ключи таблицы config
const (
	KeyPriceThreshold = "price_threshold"
	KeyCheckInterval  = "check_interval"
	KeyAlertInterval  = "alert_interval"
)

// Дефолты на случай отсутствующего ключа или недоступной базы
var defaultPriceThreshold = decimal.NewFromInt(5) // процентов

const (
	defaultCheckInterval = 60 * time.Second
	defaultAlertInterval = 1800 * time.Second // 30 минут между алертами
)

// SettingsRepository - runtime-настройки, редактируемые админкой без рестарта.
// Монитор перечитывает их каждый цикл, поэтому все геттеры fail-soft.
type SettingsRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSettingsRepository(db *DB, logger *slog.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

func (r *SettingsRepository) PriceThreshold(ctx context.Context) decimal.Decimal {
	raw, ok := r.get(ctx, KeyPriceThreshold)
	if !ok {
		return defaultPriceThreshold
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || !value.IsPositive() {
		r.logger.Warn("Некорректный price_threshold в конфиге", slog.String("value", raw))
		return defaultPriceThreshold
	}
	return value
}

func (r *SettingsRepository) CheckInterval(ctx context.Context) time.Duration {
	return r.seconds(ctx, KeyCheckInterval, defaultCheckInterval)
}

func (r *SettingsRepository) AlertInterval(ctx context.Context) time.Duration {
	return r.seconds(ctx, KeyAlertInterval, defaultAlertInterval)
}

func (r *SettingsRepository) Set(ctx context.Context, key, value, description string) error {
	query := `
		INSERT INTO config (key, value, description, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			description = COALESCE(excluded.description, config.description),
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, key, value, description)
	return err
}

// Helpers

func (r *SettingsRepository) get(ctx context.Context, key string) (string, bool) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		r.logger.Warn("Чтение конфига не удалось, берем дефолт",
			slog.String("key", key),
			slog.String("err", err.Error()))
		return "", false
	}
	return value, true
}

func (r *SettingsRepository) seconds(ctx context.Context, key string, def time.Duration) time.Duration {
	raw, ok := r.get(ctx, key)
	if !ok {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		r.logger.Warn("Некорректный интервал в конфиге",
			slog.String("key", key),
			slog.String("value", raw))
		return def
	}
	return time.Duration(value) * time.Second
}
