package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

// Metric names recorded by the storefront.
const (
	OrdersPlaced     = "orders_placed"
	OrdersFailed     = "orders_failed"
	StockShortfalls  = "stock_shortfalls"
	EmailsSent       = "emails_sent"
	EmailsFailed     = "emails_failed"
	WebhooksSent     = "webhooks_sent"
	WebhooksFailed   = "webhooks_failed"
	ReceiptsUploaded = "receipts_uploaded"
	SystemCPUPercent = "system_cpu_percent"
	SystemMemPercent = "system_mem_percent"
)

var (
	mu      sync.Mutex
	storage tstorage.Storage
)

// InitMetrics opens the embedded time-series store under the workdir.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

// Counter records a single occurrence of the named metric.
func Counter(name string) {
	Gauge(name, 1)
}

// Gauge records a value for the named metric at the current time.
func Gauge(name string, value float64) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
		},
	})
}

// Select returns the data points for a metric in [start, end].
func Select(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil, nil
	}
	return storage.Select(name, nil, start, end)
}

// Close flushes and closes the metrics store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
