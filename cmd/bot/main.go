package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkarev/moodpulse/internal/alerts"
	"github.com/mkarev/moodpulse/internal/bot"
	"github.com/mkarev/moodpulse/internal/bot/handlers"
	"github.com/mkarev/moodpulse/internal/checkin"
	"github.com/mkarev/moodpulse/internal/config"
	"github.com/mkarev/moodpulse/internal/database"
	"github.com/mkarev/moodpulse/internal/logger"
	"github.com/mkarev/moodpulse/internal/reminder"
	"github.com/mkarev/moodpulse/internal/repository"
	"github.com/mkarev/moodpulse/internal/scheduler"
	"github.com/mkarev/moodpulse/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("connected to database")

	if err := db.Migrate(ctx); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}
	zlog.Info("database migrations completed")

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		zlog.Fatal("failed to create telegram api", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db, cfg.DefaultTimezone)
	checkinRepo := repository.NewCheckinRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	analyzer := alerts.NewAnalyzer(userRepo, checkinRepo, alertRepo, zlog)
	reminderSvc := reminder.New(userRepo, checkinRepo, zlog)
	checkinSvc := checkin.New(userRepo, checkinRepo, analyzer, cfg.NoteMaxLength, zlog)
	statsSvc := stats.NewService(userRepo, checkinRepo, zlog)

	dispatcher := bot.NewDispatcher(api, zlog)
	sched := scheduler.New(reminderSvc, dispatcher, zlog, cfg.TickInterval)
	sched.Start()
	defer sched.Stop()

	b, err := bot.New(api, &handlers.Services{
		Users:    userRepo,
		Reminder: reminderSvc,
		Checkin:  checkinSvc,
		Stats:    statsSvc,
	}, zlog)
	if err != nil {
		zlog.Fatal("failed to create bot", zap.Error(err))
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		zlog.Info("shutting down")
		cancel()
	}()

	zlog.Info("starting bot")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal("bot error", zap.Error(err))
	}
}
