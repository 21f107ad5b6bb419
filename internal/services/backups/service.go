package backups

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BearBump/TaxiOrders/internal/integrations/backup"
	"github.com/BearBump/TaxiOrders/internal/metrics"
	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var ErrRateLimited = errors.New("backup rate limit exceeded")

type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Result struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	ObjectKey string `json:"object_key,omitempty"`
}

type Service struct {
	gw       backup.Gateway
	uploader Uploader

	rl         RateLimiter
	maxPerHour int64

	now func() time.Time
}

func New(gw backup.Gateway) *Service {
	return &Service{gw: gw, now: time.Now}
}

func (s *Service) WithUploader(u Uploader) *Service {
	s.uploader = u
	return s
}

// WithRateLimit caps dumps per clock hour. perHour <= 0 disables the cap.
func (s *Service) WithRateLimit(rl RateLimiter, perHour int) *Service {
	s.rl = rl
	s.maxPerHour = int64(perHour)
	return s
}

func (s *Service) Dump(ctx context.Context) (Result, error) {
	if err := s.checkRate(ctx); err != nil {
		metrics.BackupCount.WithLabelValues("dump", "rejected").Inc()
		return Result{}, err
	}

	path, err := s.gw.Dump(ctx)
	if err != nil {
		metrics.BackupCount.WithLabelValues("dump", "error").Inc()
		return Result{}, errors.WithMessage(err, "dump")
	}

	res := Result{Path: path}
	if st, err := os.Stat(path); err == nil {
		res.SizeBytes = st.Size()
	}
	metrics.BackupCount.WithLabelValues("dump", "success").Inc()
	metrics.BackupSize.Set(float64(res.SizeBytes))
	metrics.LastBackupTimestamp.Set(float64(s.now().Unix()))
	slog.Info("dump created", "path", path, "size", humanize.Bytes(uint64(res.SizeBytes)))

	if s.uploader == nil {
		return res, nil
	}
	key, err := s.uploader.Upload(ctx, path)
	if err != nil {
		metrics.BackupCount.WithLabelValues("upload", "error").Inc()
		// локальный дамп остаётся, путь отдаём вместе с ошибкой
		return res, errors.WithMessage(err, "upload dump")
	}
	metrics.BackupCount.WithLabelValues("upload", "success").Inc()
	res.ObjectKey = key
	return res, nil
}

// Restore loads a dump file back into the database. A missing file is reported as
// models.ErrNotFound without touching the database.
func (s *Service) Restore(ctx context.Context, path string) error {
	if path == "" {
		return errors.Wrap(models.ErrConstraintViolation, "dump path is required")
	}
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(models.ErrNotFound, "dump file %q", path)
		}
		return errors.Wrap(err, "stat dump file")
	}
	if st.IsDir() {
		return errors.Wrapf(models.ErrConstraintViolation, "dump path %q is a directory", path)
	}

	if err := s.gw.Restore(ctx, path); err != nil {
		metrics.BackupCount.WithLabelValues("restore", "error").Inc()
		return errors.WithMessage(err, "restore")
	}
	metrics.BackupCount.WithLabelValues("restore", "success").Inc()
	slog.Info("dump restored", "path", path, "size", humanize.Bytes(uint64(st.Size())))
	return nil
}

func (s *Service) checkRate(ctx context.Context) error {
	if s.rl == nil || s.maxPerHour <= 0 {
		return nil
	}
	key := fmt.Sprintf("rl:backup:dump:%s", s.now().UTC().Format("2006010215"))
	allowed, n, err := s.rl.Allow(ctx, key, s.maxPerHour, 70*time.Minute)
	if err != nil {
		return err
	}
	if !allowed {
		slog.Warn("dump rate limit exceeded", "count", n, "limit", s.maxPerHour)
		return errors.Wrapf(ErrRateLimited, "%d dumps this hour, limit %d", n, s.maxPerHour)
	}
	return nil
}
