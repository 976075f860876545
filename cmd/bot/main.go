package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/romanzzaa/binance-watch-bot/internal/cache"
	"github.com/romanzzaa/binance-watch-bot/internal/config"
	"github.com/romanzzaa/binance-watch-bot/internal/infrastructure/binance"
	"github.com/romanzzaa/binance-watch-bot/internal/infrastructure/database"
	"github.com/romanzzaa/binance-watch-bot/internal/infrastructure/telegram"
	"github.com/romanzzaa/binance-watch-bot/internal/scheduler"
	"github.com/romanzzaa/binance-watch-bot/internal/usecase"
)

const monitorTaskID = "price-monitor"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Единственный жесткий отказ на старте - отсутствие учетки канала доставки
	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN не задан")
		os.Exit(1)
	}

	db, err := database.NewConnection(database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	watchRepo := database.NewWatchlistRepository(db, logger)
	alertRepo := database.NewAlertHistoryRepository(db)
	settingsRepo := database.NewSettingsRepository(db, logger)

	binanceClient := binance.NewClient(cfg.SpotAPIURL, cfg.FuturesAPIURL, cfg.HTTPTimeout)

	priceCache := cache.NewKeyedCache(cache.DefaultTTL)
	snapshotCache := cache.NewSnapshotCache(cache.DefaultTTL)
	resolver := usecase.NewPriceResolver(binanceClient, priceCache, snapshotCache, logger)

	tgBot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tgBot.Debug = false
	logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

	notifier := telegram.NewNotifier(tgBot, cfg.AdminChatID, logger)
	monitor := usecase.NewMonitor(watchRepo, alertRepo, settingsRepo, resolver, notifier, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(logger)
	checkInterval := settingsRepo.CheckInterval(ctx)
	if err := sched.AddTask(monitorTaskID, checkInterval, func() {
		monitor.RunOnce(ctx)
	}); err != nil {
		logger.Error("failed to schedule monitor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sched.Start()

	logger.Info("Starting bot...",
		slog.String("env", cfg.Env),
		slog.Duration("check_interval", checkInterval))
	_ = notifier.NotifyAdmin("🤖 Мониторинг цен запущен")

	// Первый проход сразу, не дожидаясь первого тика
	go monitor.RunOnce(ctx)

	<-ctx.Done()
	sched.StopAllTasks()
	sched.Stop()
	logger.Info("Bot stopped gracefully")
}
