package adminapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/360EntSecGroup-Skylar/excelize"
	"gorm.io/gorm"

	"github.com/pkg/errors"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
)

// registerOrderRoutes registers order management endpoints
func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPUT("/orders/:id/status", updateOrderStatus)
	webserver.ApiPUT("/orders/:id/verify", verifyOrderPayment)
	webserver.ApiGET("/orders/export", exportOrders)
}

func orderQuery(c echo.Context) (*gorm.DB, error) {
	db := GetDB(c).Model(&domain.Order{})

	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		if !domain.ValidOrderStatus(status) {
			return nil, errors.Errorf("unknown status %q", status)
		}
		db = db.Where("status = ?", status)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		pattern := "%" + q + "%"
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("order_number ILIKE ? OR customer_name ILIKE ? OR customer_email ILIKE ? OR customer_phone ILIKE ?",
				pattern, pattern, pattern, pattern)
		} else {
			lp := "%" + strings.ToLower(q) + "%"
			db = db.Where("LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_phone) LIKE ?",
				lp, lp, lp, lp)
		}
	}

	// Date range filters accept any parseable format (2024-01-02,
	// 02 Jan 2024, unix seconds...).
	if from := strings.TrimSpace(c.QueryParam("from")); from != "" {
		t, err := dateparse.ParseIn(from, time.Local)
		if err != nil {
			return nil, errors.Errorf("unparseable from date %q", from)
		}
		db = db.Where("created_at >= ?", t)
	}
	if to := strings.TrimSpace(c.QueryParam("to")); to != "" {
		t, err := dateparse.ParseIn(to, time.Local)
		if err != nil {
			return nil, errors.Errorf("unparseable to date %q", to)
		}
		db = db.Where("created_at <= ?", t)
	}
	return db, nil
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db, err := orderQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	allowed := map[string]string{
		"id":           "id",
		"order_number": "order_number",
		"total_amount": "total_amount",
		"status":       "status",
		"created_at":   "created_at",
	}
	sortCol, okv := allowed[sortField]
	if !okv || sortCol == "" {
		sortCol = "created_at"
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}

	var rows []domain.Order
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var ord domain.Order
	if err := GetDB(c).Preload("Items").Where("id = ?", id).First(&ord).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	return ok(c, ord)
}

type statusPayload struct {
	Status string `json:"status" validate:"required"`
}

// updateOrderStatus sets any valid status; there is no transition graph,
// the operator can move an order back and forth freely.
func updateOrderStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload statusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status", err.Error())
	}
	if !domain.ValidOrderStatus(payload.Status) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			"Status must be one of pending, confirmed, shipped, delivered, cancelled", nil)
	}

	var ord domain.Order
	if err := GetDB(c).Where("id = ?", id).First(&ord).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	if err := GetDB(c).Model(&ord).Updates(map[string]interface{}{
		"status":     payload.Status,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order", err.Error())
	}
	auditLog(c, "order_status", fmt.Sprintf("order %s status -> %s", ord.OrderNumber, payload.Status))
	ord.Status = payload.Status
	return ok(c, ord)
}

// verifyOrderPayment marks the uploaded bank-transfer receipt as checked.
func verifyOrderPayment(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var ord domain.Order
	if err := GetDB(c).Where("id = ?", id).First(&ord).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	if err := GetDB(c).Model(&ord).Updates(map[string]interface{}{
		"payment_verified": true,
		"updated_at":       time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order", err.Error())
	}
	auditLog(c, "order_verify", fmt.Sprintf("order %s payment verified", ord.OrderNumber))
	ord.PaymentVerified = true
	return ok(c, ord)
}

type orderExportRow struct {
	OrderNumber     string `csv:"order_number"`
	CustomerName    string `csv:"customer_name"`
	CustomerEmail   string `csv:"customer_email"`
	CustomerPhone   string `csv:"customer_phone"`
	TotalAmount     string `csv:"total_amount"`
	Status          string `csv:"status"`
	DeliveryOption  string `csv:"delivery_option"`
	SelectedState   string `csv:"selected_state"`
	PaymentVerified bool   `csv:"payment_verified"`
	CreatedAt       string `csv:"created_at"`
}

func exportRows(orders []domain.Order) []orderExportRow {
	rows := make([]orderExportRow, 0, len(orders))
	for _, ord := range orders {
		rows = append(rows, orderExportRow{
			OrderNumber:     ord.OrderNumber,
			CustomerName:    ord.CustomerName,
			CustomerEmail:   ord.CustomerEmail,
			CustomerPhone:   ord.CustomerPhone,
			TotalAmount:     ord.TotalAmount.StringFixed(2),
			Status:          ord.Status,
			DeliveryOption:  ord.DeliveryOption,
			SelectedState:   ord.SelectedState,
			PaymentVerified: ord.PaymentVerified,
			CreatedAt:       ord.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

// exportOrders streams the filtered order list as csv (default) or xlsx.
func exportOrders(c echo.Context) error {
	db, err := orderQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	var orders []domain.Order
	if err := db.Order("created_at DESC").Find(&orders).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	rows := exportRows(orders)
	filename := "orders-" + time.Now().Format("20060102-150405")

	switch strings.ToLower(c.QueryParam("format")) {
	case "", "csv":
		data, err := gocsv.MarshalBytes(&rows)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render csv", err.Error())
		}
		auditLog(c, "order_export", fmt.Sprintf("exported %d orders as csv", len(rows)))
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		return c.Blob(http.StatusOK, "text/csv", data)
	case "xlsx":
		xlsx := excelize.NewFile()
		headers := []string{"Order Number", "Customer", "Email", "Phone", "Total", "Status",
			"Delivery", "State", "Verified", "Created"}
		for i, h := range headers {
			xlsx.SetCellValue("Sheet1", fmt.Sprintf("%s1", excelize.ToAlphaString(i)), h)
		}
		for i, row := range rows {
			values := []interface{}{row.OrderNumber, row.CustomerName, row.CustomerEmail,
				row.CustomerPhone, row.TotalAmount, row.Status, row.DeliveryOption,
				row.SelectedState, row.PaymentVerified, row.CreatedAt}
			for j, v := range values {
				xlsx.SetCellValue("Sheet1", fmt.Sprintf("%s%d", excelize.ToAlphaString(j), i+2), v)
			}
		}
		auditLog(c, "order_export", fmt.Sprintf("exported %d orders as xlsx", len(rows)))
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
		c.Response().Header().Set(echo.HeaderContentType,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Response().WriteHeader(http.StatusOK)
		return xlsx.Write(c.Response())
	default:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be csv or xlsx", nil)
	}
}
