package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/TaxiOrders/config"
	"github.com/BearBump/TaxiOrders/internal/api/orders_api"
	"github.com/BearBump/TaxiOrders/internal/app"
	"github.com/BearBump/TaxiOrders/internal/broker/kafka"
	"github.com/BearBump/TaxiOrders/internal/cache/rediscache"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
	"github.com/BearBump/TaxiOrders/internal/services/orders"
)

type taxiAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     taxiAPIOpts
	handler  http.Handler
	svc      *orders.Service
	consumer kafkaConsumer
	closers  []func()
}

func mustBootstrapTaxiAPI() *taxiAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	app.SetupLogging(cfg.Taxi.LogLevel)

	a := &taxiAPIApp{}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a.ctx, a.cancel = ctx, cancel

	st, err := app.OpenStorage(cfg)
	if err != nil {
		panic(err)
	}
	a.closers = append(a.closers, st.Close)

	svc := orders.New(st, st, nil, 0)
	var rl backups.RateLimiter
	if addr := app.RedisAddr(cfg); addr != "" {
		rc := rediscache.New(addr)
		a.closers = append(a.closers, func() { _ = rc.Close() })
		svc = orders.New(st, st, rc, app.ListCacheTTL(cfg))

		limiter := rediscache.NewRateLimiter(addr)
		a.closers = append(a.closers, func() { _ = limiter.Close() })
		rl = limiter
	}

	brokers := app.KafkaBrokers(cfg)
	if brokers != nil {
		producer := kafka.NewProducer(brokers)
		a.closers = append(a.closers, func() { _ = producer.Close() })
		svc.WithEvents(producer, cfg.Kafka.OrderChangedTopicName)

		consumer := kafka.NewConsumer(brokers, cfg.Kafka.OrderIntakeTopicName, cfg.Taxi.KafkaConsumerGroup)
		a.closers = append(a.closers, func() { _ = consumer.Close() })
		a.consumer = consumer
	} else {
		slog.Warn("kafka is not configured, order events and intake are disabled")
	}

	backupSvc, err := app.NewBackupService(ctx, cfg, rl)
	if err != nil {
		panic(err)
	}

	a.svc = svc
	a.handler = orders_api.New(svc, backupSvc, app.APIOptions(cfg)).Router()
	a.opts = taxiAPIOpts{
		httpAddr:      cfg.Taxi.HTTPAddr,
		topic:         cfg.Kafka.OrderIntakeTopicName,
		consumerGroup: cfg.Taxi.KafkaConsumerGroup,
	}
	return a
}

func (a *taxiAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *taxiAPIApp) Run() error {
	return runTaxiAPI(a.ctx, a.opts, a.handler, a.svc, a.consumer)
}
