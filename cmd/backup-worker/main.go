package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/TaxiOrders/config"
	"github.com/BearBump/TaxiOrders/internal/app"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	app.SetupLogging(cfg.Taxi.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("backup worker starting", "schedule", cfg.Backup.Schedule, "http", cfg.Taxi.WorkerHTTPAddr)
	err = RunBackupWorker(ctx, cfg, defaultWorkerFactories(), nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("backup worker stopped", "error", err.Error())
		os.Exit(1)
	}
}
