package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"go.uber.org/zap"

	"medreminder/internal/app"
	"medreminder/internal/config"
	"medreminder/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Error("startup failed", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	zl.Info("dispatcher started",
		zap.String("mode", cfg.RunMode),
		zap.String("store", cfg.StoreDriver),
		zap.String("push", cfg.PushProvider),
		zap.String("tz", cfg.Timezone),
	)

	if err := a.Run(ctx); err != nil {
		zl.Error("dispatcher stopped with error", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
	zl.Info("dispatcher stopped")
}
