package main

import (
	"context"

	"github.com/BearBump/TaxiOrders/config"
	"github.com/BearBump/TaxiOrders/internal/api/orders_api"
	"github.com/BearBump/TaxiOrders/internal/app"
	"github.com/BearBump/TaxiOrders/internal/broker/kafka"
	"github.com/BearBump/TaxiOrders/internal/cache/rediscache"
	"github.com/BearBump/TaxiOrders/internal/report"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
	"github.com/BearBump/TaxiOrders/internal/services/orders"
	"github.com/pkg/errors"
)

// environment is what a single CLI invocation works against.
type environment struct {
	dbName    string
	orders    orders_api.Orders
	backups   orders_api.Backups
	report    report.Options
	reportDir string

	closers []func()
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

type envFactory func(ctx context.Context, configPath string) (*environment, error)

// openEnvironment wires the same components as taxi-api, so writes made from the
// CLI invalidate cached lists and emit order events too.
func openEnvironment(ctx context.Context, configPath string) (*environment, error) {
	if configPath == "" {
		return nil, errors.New("config path is required (--config or configPath env)")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	app.SetupLogging(cfg.Taxi.LogLevel)

	env := &environment{
		dbName:    cfg.Database.DBName,
		report:    app.ReportOptions(cfg),
		reportDir: cfg.Report.Dir,
	}

	st, err := app.OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, st.Close)

	svc := orders.New(st, st, nil, 0)
	var rl backups.RateLimiter
	if addr := app.RedisAddr(cfg); addr != "" {
		rc := rediscache.New(addr)
		env.closers = append(env.closers, func() { _ = rc.Close() })
		svc = orders.New(st, st, rc, app.ListCacheTTL(cfg))

		limiter := rediscache.NewRateLimiter(addr)
		env.closers = append(env.closers, func() { _ = limiter.Close() })
		rl = limiter
	}
	if brokers := app.KafkaBrokers(cfg); brokers != nil {
		producer := kafka.NewProducer(brokers)
		env.closers = append(env.closers, func() { _ = producer.Close() })
		svc.WithEvents(producer, cfg.Kafka.OrderChangedTopicName)
	}
	env.orders = svc

	backupSvc, err := app.NewBackupService(ctx, cfg, rl)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.backups = backupSvc

	return env, nil
}
