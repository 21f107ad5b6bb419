// Package report renders the order registry into spreadsheet and PDF exports.
package report

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/TaxiOrders/internal/metrics"
	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/pkg/errors"
)

// Columns is the header row shared by every export format.
var Columns = []string{"id", "driver_name", "car_number", "client_phone", "order_status"}

func row(o *models.Order) []string {
	return []string{strconv.FormatInt(o.ID, 10), o.DriverName, o.CarNumber, o.ClientPhone, o.OrderStatus}
}

type Source interface {
	ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error)
}

type Generator interface {
	Format() string
	Generate(orders []*models.Order, path string) error
}

type Options struct {
	Title    string
	FontPath string
}

func ForFormat(name string, opts Options) (Generator, error) {
	switch strings.ToLower(name) {
	case "xlsx":
		return NewXLSX(opts.Title), nil
	case "pdf":
		return NewPDF(opts.Title, opts.FontPath), nil
	}
	return nil, errors.Wrapf(models.ErrConstraintViolation, "unknown report format %q", name)
}

// Export writes every order, ordered by id, to path and returns how many rows it wrote.
func Export(ctx context.Context, src Source, gen Generator, path string) (int, error) {
	orders, err := src.ListSortedByID(ctx, true)
	if err != nil {
		metrics.ReportCount.WithLabelValues(gen.Format(), "error").Inc()
		return 0, errors.WithMessage(err, "load orders")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			metrics.ReportCount.WithLabelValues(gen.Format(), "error").Inc()
			return 0, errors.Wrap(err, "create report dir")
		}
	}

	if err := gen.Generate(orders, path); err != nil {
		metrics.ReportCount.WithLabelValues(gen.Format(), "error").Inc()
		return 0, err
	}
	metrics.ReportCount.WithLabelValues(gen.Format(), "success").Inc()
	slog.Info("report exported", "format", gen.Format(), "path", path, "rows", len(orders))
	return len(orders), nil
}

// FileName builds a default export name, e.g. taxi_export_20240501T100000Z.pdf.
func FileName(format string, at time.Time) string {
	return "taxi_export_" + at.UTC().Format("20060102T150405Z") + "." + strings.ToLower(format)
}

func exportedAtLine(t time.Time) string {
	return "Exported at: " + t.Format("2006-01-02 15:04:05")
}
