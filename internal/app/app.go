// Package app turns config.Config into the components the binaries run.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BearBump/TaxiOrders/config"
	"github.com/BearBump/TaxiOrders/internal/api/orders_api"
	"github.com/BearBump/TaxiOrders/internal/integrations/backup"
	"github.com/BearBump/TaxiOrders/internal/integrations/backup/dockerexec"
	"github.com/BearBump/TaxiOrders/internal/integrations/backup/fake"
	"github.com/BearBump/TaxiOrders/internal/integrations/backup/s3store"
	"github.com/BearBump/TaxiOrders/internal/report"
	"github.com/BearBump/TaxiOrders/internal/services/backups"
	"github.com/BearBump/TaxiOrders/internal/storage/pgorders"
	"github.com/pkg/errors"
)

// SetupLogging installs a JSON slog handler on stderr as the default logger.
func SetupLogging(level string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(level)})))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func ParamsFromConfig(cfg *config.Config) pgorders.ConnParams {
	return pgorders.ConnParams{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.Username,
		Password:       cfg.Database.Password,
		SSLMode:        cfg.Database.SSLMode,
		AdminDB:        cfg.Database.AdminDBName,
		TargetDB:       cfg.Database.DBName,
		ConnectTimeout: time.Duration(cfg.Database.ConnectTimeoutSeconds) * time.Second,
	}
}

func OpenStorage(cfg *config.Config) (*pgorders.Storage, error) {
	return pgorders.New(ParamsFromConfig(cfg))
}

// RedisAddr is empty when redis is not configured.
func RedisAddr(cfg *config.Config) string {
	if cfg.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
}

// KafkaBrokers is nil when kafka is not configured.
func KafkaBrokers(cfg *config.Config) []string {
	if cfg.Kafka.Host == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
}

func ListCacheTTL(cfg *config.Config) time.Duration {
	if cfg.Taxi.ListCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Taxi.ListCacheTTLSeconds) * time.Second
}

// NewBackupGateway returns the docker gateway, or the file-only fake when no
// container is configured.
func NewBackupGateway(cfg *config.Config) (backup.Gateway, error) {
	if cfg.Backup.Container == "" {
		slog.Warn("backup.container is empty, dumps are fake")
		return fake.New(cfg.Backup.Dir), nil
	}
	return dockerexec.New(dockerexec.Config{
		Container: cfg.Backup.Container,
		User:      cfg.Backup.User,
		Database:  cfg.Database.DBName,
		Dir:       cfg.Backup.Dir,
	}, dockerexec.ExecRunner{})
}

func NewUploader(ctx context.Context, cfg *config.Config) (backups.Uploader, error) {
	if !cfg.Backup.S3.Enabled {
		return nil, nil
	}
	u, err := s3store.NewFromOptions(ctx, s3store.Options{
		Bucket:    cfg.Backup.S3.Bucket,
		Region:    cfg.Backup.S3.Region,
		Endpoint:  cfg.Backup.S3.Endpoint,
		AccessKey: cfg.Backup.S3.AccessKey,
		SecretKey: cfg.Backup.S3.SecretKey,
		Prefix:    cfg.Backup.S3.Prefix,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "s3 uploader")
	}
	return u, nil
}

// NewBackupService wires gateway, optional S3 upload and the optional hourly cap.
// rl may be nil.
func NewBackupService(ctx context.Context, cfg *config.Config, rl backups.RateLimiter) (*backups.Service, error) {
	gw, err := NewBackupGateway(cfg)
	if err != nil {
		return nil, err
	}
	svc := backups.New(gw)

	up, err := NewUploader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if up != nil {
		svc.WithUploader(up)
	}
	if rl != nil && cfg.Backup.MaxDumpsPerHour > 0 {
		svc.WithRateLimit(rl, cfg.Backup.MaxDumpsPerHour)
	}
	return svc, nil
}

func ReportOptions(cfg *config.Config) report.Options {
	return report.Options{Title: cfg.Report.Title, FontPath: cfg.Report.FontPath}
}

func APIOptions(cfg *config.Config) orders_api.Options {
	return orders_api.Options{
		DatabaseName:   cfg.Database.DBName,
		BackupDir:      cfg.Backup.Dir,
		ReportDir:      cfg.Report.Dir,
		ReportTitle:    cfg.Report.Title,
		ReportFontPath: cfg.Report.FontPath,
	}
}
