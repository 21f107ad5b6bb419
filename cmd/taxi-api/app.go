package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/TaxiOrders/internal/broker/kafka"
	"github.com/BearBump/TaxiOrders/internal/broker/messages"
	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/pkg/errors"
)

type taxiAPIOpts struct {
	httpAddr string

	topic         string
	consumerGroup string
	retryDelay    time.Duration

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type intakeApplier interface {
	ApplyIntake(ctx context.Context, msg messages.OrderIntake) (int64, error)
}

// runTaxiAPI serves HTTP and, when consumer is set, applies intake messages until
// ctx is done.
func runTaxiAPI(ctx context.Context, opts taxiAPIOpts, handler http.Handler, intake intakeApplier, consumer kafkaConsumer) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, handler)
	}()

	if consumer != nil {
		go func() {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			err := consumer.Consume(ctx, intakeHandler(ctx, intake, opts.retryDelay))
			if err != nil && ctx.Err() == nil {
				slog.Error("intake consumer stopped", "error", err.Error())
			}
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

// intakeHandler decodes and applies one intake message. Bad payloads and rejected
// orders are skipped; any other failure is retried until it succeeds or ctx ends,
// so the offset is committed only after the order is stored.
func intakeHandler(ctx context.Context, svc intakeApplier, retryDelay time.Duration) func(key, value []byte) error {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return func(_ []byte, value []byte) error {
		var m messages.OrderIntake
		if err := json.Unmarshal(value, &m); err != nil {
			return errors.Wrapf(kafka.ErrSkip, "decode intake: %v", err)
		}

		delay := retryDelay
		for {
			id, err := svc.ApplyIntake(ctx, m)
			if err == nil {
				slog.Info("intake order applied", "id", id, "car_number", m.CarNumber)
				return nil
			}
			if errors.Is(err, models.ErrConstraintViolation) {
				return errors.Wrapf(kafka.ErrSkip, "intake order rejected: %v", err)
			}

			slog.Warn("intake apply failed, retrying", "error", err.Error(), "in", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if delay < 30*time.Second {
				delay *= 2
			}
		}
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	err := srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
