package adminapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
	"github.com/urbanthreads/storefront/pkg/metrics"
)

// registerDashboardRoutes registers the admin dashboard endpoints
func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard", getDashboard)
	webserver.ApiGET("/dashboard/metrics", getDashboardMetrics)
}

// revenueStatuses are the statuses that count toward recognized revenue.
var revenueStatuses = []string{domain.OrderConfirmed, domain.OrderShipped, domain.OrderDelivered}

func getDashboard(c echo.Context) error {
	db := GetDB(c)

	var totalOrders, pendingOrders, totalProducts, activeProducts int64
	db.Model(&domain.Order{}).Count(&totalOrders)
	db.Model(&domain.Order{}).Where("status = ?", domain.OrderPending).Count(&pendingOrders)
	db.Model(&domain.Product{}).Count(&totalProducts)
	db.Model(&domain.Product{}).Where("is_active = ?", true).Count(&activeProducts)

	statusCounts := map[string]int64{}
	var byStatus []struct {
		Status string
		Count  int64
	}
	db.Model(&domain.Order{}).Select("status, count(*) as count").Group("status").Scan(&byStatus)
	for _, row := range byStatus {
		statusCounts[row.Status] = row.Count
	}

	var amounts []decimal.Decimal
	db.Model(&domain.Order{}).Where("status IN ?", revenueStatuses).
		Pluck("total_amount", &amounts)
	revenue := decimal.Zero
	values := make([]float64, 0, len(amounts))
	for _, d := range amounts {
		revenue = revenue.Add(d)
		f, _ := d.Float64()
		values = append(values, f)
	}
	meanOrder, _ := stats.Mean(values)
	medianOrder, _ := stats.Median(values)

	var recent []domain.Order
	db.Order("created_at DESC").Limit(5).Find(&recent)

	threshold := GetAppContext(c).ConfigMgr().LowStockThreshold()
	var lowStock []domain.Product
	db.Where("is_active = ? AND stock <= ?", true, threshold).
		Order("stock ASC").Limit(20).Find(&lowStock)

	return ok(c, map[string]interface{}{
		"total_orders":       totalOrders,
		"pending_orders":     pendingOrders,
		"total_products":     totalProducts,
		"active_products":    activeProducts,
		"orders_by_status":   statusCounts,
		"revenue":            revenue.StringFixed(2),
		"mean_order_value":   meanOrder,
		"median_order_value": medianOrder,
		"recent_orders":      recent,
		"low_stock":          lowStock,
	})
}

// getDashboardMetrics returns recent operational counters and system load
// from the embedded time-series store.
func getDashboardMetrics(c echo.Context) error {
	end := time.Now().Unix()
	start := end - 24*3600

	out := map[string]interface{}{}
	for _, name := range []string{
		metrics.OrdersPlaced, metrics.OrdersFailed, metrics.StockShortfalls,
		metrics.EmailsSent, metrics.EmailsFailed,
		metrics.WebhooksSent, metrics.WebhooksFailed,
		metrics.ReceiptsUploaded,
	} {
		points, err := metrics.Select(name, start, end)
		if err != nil {
			continue
		}
		var sum float64
		for _, p := range points {
			sum += p.Value
		}
		out[name] = sum
	}

	for _, name := range []string{metrics.SystemCPUPercent, metrics.SystemMemPercent} {
		points, err := metrics.Select(name, end-600, end)
		if err != nil || len(points) == 0 {
			out[name] = nil
			continue
		}
		out[name] = points[len(points)-1].Value
	}

	return ok(c, out)
}
