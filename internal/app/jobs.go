package app

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/pkg/metrics"
)

const oprLogRetention = 365 * 24 * time.Hour

func (a *Application) initJob() {
	a.sched = cron.New(cron.WithLocation(time.Local))

	_, err := a.sched.AddFunc("@every 30s", a.jobSystemMonitor)
	if err != nil {
		zap.S().Errorf("add system monitor job failed: %v", err)
	}
	_, err = a.sched.AddFunc("@daily", a.jobCleanOprLogs)
	if err != nil {
		zap.S().Errorf("add oprlog cleanup job failed: %v", err)
	}
	_, err = a.sched.AddFunc("@hourly", a.jobStalePendingOrders)
	if err != nil {
		zap.S().Errorf("add stale order job failed: %v", err)
	}
}

func (a *Application) jobSystemMonitor() {
	percents, err := cpu.Percent(time.Second, false)
	if err == nil && len(percents) > 0 {
		metrics.Gauge(metrics.SystemCPUPercent, percents[0])
	}
	vm, err := mem.VirtualMemory()
	if err == nil {
		metrics.Gauge(metrics.SystemMemPercent, vm.UsedPercent)
	}
}

func (a *Application) jobCleanOprLogs() {
	cutoff := time.Now().Add(-oprLogRetention)
	result := a.gormDB.Where("opt_time < ?", cutoff).Delete(&domain.SysOprLog{})
	if result.Error != nil {
		zap.S().Errorf("oprlog cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		zap.S().Infof("removed %d expired operator log entries", result.RowsAffected)
	}
}

// SetStaleOrderNotifier registers the callback run when pending orders age
// past the reminder window (main wires it to the operator mailer).
func (a *Application) SetStaleOrderNotifier(fn func(count int64)) {
	a.staleOrderNotify = fn
}

// jobStalePendingOrders flags orders still pending 48 hours after payment
// receipt upload, so the operator can chase verification.
func (a *Application) jobStalePendingOrders() {
	cutoff := time.Now().Add(-48 * time.Hour)
	var count int64
	err := a.gormDB.Model(&domain.Order{}).
		Where("status = ? AND created_at < ?", domain.OrderPending, cutoff).
		Count(&count).Error
	if err != nil {
		zap.S().Errorf("stale order check failed: %v", err)
		return
	}
	if count == 0 {
		return
	}
	zap.S().Warnf("%d orders pending verification for over 48 hours", count)
	if a.staleOrderNotify != nil {
		a.staleOrderNotify(count)
	}
}
