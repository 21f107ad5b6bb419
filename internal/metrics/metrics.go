// Package metrics holds the Prometheus collectors shared by the registry binaries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrderOperations counts registry operations by outcome.
	OrderOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_orders_operations_total",
		Help: "The total number of order registry operations",
	}, []string{"op", "status"})

	// OrderOperationDuration measures registry operation latency.
	OrderOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxi_orders_operation_duration_seconds",
		Help:    "Time taken by order registry operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// BackupCount tracks dumps and restores.
	BackupCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_backup_total",
		Help: "The total number of database dumps and restores",
	}, []string{"kind", "status"})

	// BackupSize tracks size of the last dump in bytes.
	BackupSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taxi_backup_size_bytes",
		Help: "Size of the last database dump in bytes",
	})

	// LastBackupTimestamp records the time of the last successful dump.
	LastBackupTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taxi_backup_last_success_timestamp",
		Help: "Unix time of the last successful database dump",
	})

	// ReportCount tracks generated reports.
	ReportCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_report_total",
		Help: "The total number of generated order reports",
	}, []string{"format", "status"})
)

// ObserveOrderOp records one registry operation started at start.
func ObserveOrderOp(op string, start time.Time, err error) {
	OrderOperations.WithLabelValues(op, Status(err)).Inc()
	OrderOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
