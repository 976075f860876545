package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config - конфигурация процесса из окружения (.env подхватывается в main).
// Runtime-настройки мониторинга (порог, интервалы) живут в таблице config
// и читаются через SettingsRepository - их можно менять без рестарта.
type Config struct {
	Env string `envconfig:"ENV" default:"local"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"watchbot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	AdminChatID   int64  `envconfig:"TELEGRAM_ADMIN_ID" default:"0"`

	SpotAPIURL    string        `envconfig:"BINANCE_SPOT_URL" default:"https://api.binance.com"`
	FuturesAPIURL string        `envconfig:"BINANCE_FUTURES_URL" default:"https://fapi.binance.com"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
