package main

import (
	"context"

	"github.com/BearBump/TaxiOrders/config"
	"github.com/BearBump/TaxiOrders/internal/app"
	"github.com/BearBump/TaxiOrders/internal/cache/rediscache"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
)

type workerFactories struct {
	newRateLimiter func(cfg *config.Config) (rl backups.RateLimiter, closeFn func())
	newDumper      func(ctx context.Context, cfg *config.Config, rl backups.RateLimiter) (backups.Dumper, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newRateLimiter: func(cfg *config.Config) (backups.RateLimiter, func()) {
			addr := app.RedisAddr(cfg)
			if addr == "" {
				return nil, nil
			}
			rl := rediscache.NewRateLimiter(addr)
			return rl, func() { _ = rl.Close() }
		},
		newDumper: func(ctx context.Context, cfg *config.Config, rl backups.RateLimiter) (backups.Dumper, error) {
			return app.NewBackupService(ctx, cfg, rl)
		},
	}
}

// RunBackupWorker runs the dump scheduler together with its HTTP control surface
// until ctx is done.
func RunBackupWorker(ctx context.Context, cfg *config.Config, f workerFactories, onListen func(string)) error {
	rl, closeFn := f.newRateLimiter(cfg)
	if closeFn != nil {
		defer closeFn()
	}

	d, err := f.newDumper(ctx, cfg, rl)
	if err != nil {
		return err
	}
	sched, err := backups.NewScheduler(d, cfg.Backup.Schedule)
	if err != nil {
		return err
	}

	// HTTP и планировщик живут и умирают вместе
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:  cfg.Taxi.WorkerHTTPAddr,
			onListen:  onListen,
			scheduler: sched,
			cfg:       cfg,
		})
	}()

	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run(ctx) }()

	select {
	case err := <-schedErr:
		return err
	case err := <-httpErr:
		if err != nil {
			cancel()
			<-schedErr
			return err
		}
		return <-schedErr
	}
}
