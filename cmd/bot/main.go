package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"accmgr-telebot/internal/account"
	"accmgr-telebot/internal/auth"
	"accmgr-telebot/internal/config"
	"accmgr-telebot/internal/db"
	"accmgr-telebot/internal/logger"
	"accmgr-telebot/internal/repo"
	"accmgr-telebot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to open database", zap.String("dsn", db.RedactDSN(cfg.DatabaseURL)), zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		zl.Fatal("failed to create session directory", zap.Error(err))
	}

	userRepo := repo.NewUserRepo(database)
	phoneRepo := repo.NewPhoneRepo(database)
	sessionRepo := repo.NewSessionRepo(database)

	var dialer account.Dialer
	if cfg.DevMode {
		zl.Warn("DEV_MODE enabled, using stub account provider")
		dialer = account.NewStubDialer(cfg.StubCode, cfg.StubPassword)
	} else {
		zl.Fatal("no account provider configured; set DEV_MODE=true for the stub provider")
	}

	registry := auth.NewRegistry(dialer, auth.NewRepoStore(phoneRepo, sessionRepo),
		cfg.SessionDir, cfg.PendingTTL(), zl)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		zl.Fatal("failed to create bot API", zap.Error(err))
	}

	handler := telegram.NewHandler(api, userRepo, phoneRepo, registry, cfg.PendingTTL(), zl)
	bot := telegram.NewBot(api, handler, cfg.PollTimeoutSec, zl)

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("bot run failed", zap.Error(err))
	}
	zl.Info("bot stopped")
}
