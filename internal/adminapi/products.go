package adminapi

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pkg/errors"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
	"github.com/urbanthreads/storefront/pkg/common"
)

type productPayload struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       string   `json:"price" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	MainImage   string   `json:"main_image"`
	Images      []string `json:"images"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	Stock       *int     `json:"stock"`
	IsActive    *bool    `json:"is_active"`
}

// registerProductRoutes registers product CRUD and image upload endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
	webserver.ApiPOST("/products/upload", uploadProductImage)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	q := strings.TrimSpace(c.QueryParam("q"))
	category := strings.TrimSpace(c.QueryParam("category"))
	active := strings.TrimSpace(c.QueryParam("active"))

	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	// whitelist allowed sort columns to avoid SQL injection
	allowed := map[string]string{
		"id":         "id",
		"name":       "name",
		"price":      "price",
		"stock":      "stock",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	sortCol, okv := allowed[sortField]
	if !okv || sortCol == "" {
		sortCol = "created_at"
	}

	db := GetDB(c).Model(&domain.Product{})
	if q != "" {
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("name ILIKE ?", "%"+q+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}
	if category != "" {
		db = db.Where("category = ?", category)
	}
	if active != "" {
		db = db.Where("is_active = ?", active == "true")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func bindProductPayload(c echo.Context) (*productPayload, decimal.Decimal, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "parse product")
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return nil, decimal.Zero, errors.New("name is required")
	}
	if !domain.ValidCategory(payload.Category) {
		return nil, decimal.Zero, errors.New("category must be one of men, women, unisex")
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.IsNegative() {
		return nil, decimal.Zero, errors.New("price must be a non-negative amount")
	}
	if payload.Stock != nil && *payload.Stock < 0 {
		return nil, decimal.Zero, errors.New("stock must be >= 0")
	}
	return &payload, price, nil
}

func createProduct(c echo.Context) error {
	payload, price, err := bindProductPayload(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	now := time.Now()
	p := domain.Product{
		ID:          common.UUIDint64(),
		Name:        payload.Name,
		Description: payload.Description,
		Price:       price,
		Category:    payload.Category,
		MainImage:   strings.TrimSpace(payload.MainImage),
		Images:      payload.Images,
		Colors:      payload.Colors,
		Sizes:       payload.Sizes,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if payload.Stock != nil {
		p.Stock = *payload.Stock
	}
	if payload.IsActive != nil {
		p.IsActive = *payload.IsActive
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	auditLog(c, "product_create", fmt.Sprintf("created product %s (%d)", p.Name, p.ID))
	return ok(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	payload, price, err := bindProductPayload(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	p.Name = payload.Name
	p.Description = payload.Description
	p.Price = price
	p.Category = payload.Category
	p.MainImage = strings.TrimSpace(payload.MainImage)
	p.Images = payload.Images
	p.Colors = payload.Colors
	p.Sizes = payload.Sizes
	if payload.Stock != nil {
		p.Stock = *payload.Stock
	}
	if payload.IsActive != nil {
		p.IsActive = *payload.IsActive
	}
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	auditLog(c, "product_update", fmt.Sprintf("updated product %s (%d)", p.Name, p.ID))
	return ok(c, p)
}

// deleteProduct deactivates the product instead of removing the row, so
// existing order items keep a resolvable product reference.
func deleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	result := GetDB(c).Model(&domain.Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	auditLog(c, "product_delete", fmt.Sprintf("deactivated product %d", id))
	return ok(c, map[string]interface{}{"id": id})
}

func uploadProductImage(c echo.Context) error {
	appCtx := GetAppContext(c)
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Image file is required", nil)
	}
	maxBytes := appCtx.ConfigMgr().MaxUploadBytes()
	if file.Size > maxBytes {
		return fail(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("Image exceeds the %s limit", bytes.Format(maxBytes)), nil)
	}

	src, err := file.Open()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to read upload", err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to read upload", err.Error())
	}
	if int64(len(data)) > maxBytes {
		return fail(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("Image exceeds the %s limit", bytes.Format(maxBytes)), nil)
	}

	name := path.Join("products", fmt.Sprintf("%d-%s", common.UUIDint64(), common.SanitizeFilename(file.Filename)))
	contentType := file.Header.Get("Content-Type")
	if _, err := appCtx.Objects().Put(c.Request().Context(), name, data, contentType); err != nil {
		return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to store image", err.Error())
	}

	url := fmt.Sprintf("%s/public/%s", strings.TrimRight(appCtx.Config().Web.PublicURL, "/"), name)
	auditLog(c, "product_upload", fmt.Sprintf("uploaded product image %s", name))
	return ok(c, map[string]interface{}{"name": name, "url": url})
}
