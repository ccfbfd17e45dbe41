package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/app"
	"github.com/orlandoalexander/educatch/internal/config"
	"github.com/orlandoalexander/educatch/internal/controller"
	"github.com/orlandoalexander/educatch/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Application stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting educatch",
		zap.String("storage", string(cfg.Storage)),
		zap.Duration("look_ahead", cfg.LookAhead),
		zap.Bool("bot", cfg.TelegramToken != ""),
	)

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	services := service.New(storage.Provider, service.Config{
		LookAhead:              cfg.LookAhead,
		SafeguardingQuestionID: cfg.SafeguardingQuestionID,
	}, logger)

	scheduler, err := app.NewScheduler(services.Invoices, storage.Sessions,
		cfg.SweepCron, cfg.DemoJanitorCron, cfg.DemoSessionTTL, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.TelegramToken == "" {
		logger.Info("TELEGRAM_TOKEN is empty, running background jobs only")
		<-ctx.Done()
		return nil
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return err
	}
	botController := controller.NewBotController(b, services, storage.Sessions,
		cfg.TelegramTutors, cfg.DemoTutorID, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		return err
	}

	botController.Start(ctx)
	return nil
}
