package storeapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
)

// registerCatalogRoutes registers the public product catalog endpoints
func registerCatalogRoutes() {
	webserver.PubGET("/products", listCatalog)
	webserver.PubGET("/products/:id", getCatalogProduct)
}

// listCatalog returns active products, newest first. Customers only ever
// see the active slice of the catalog.
func listCatalog(c echo.Context) error {
	db := GetDB(c).Model(&domain.Product{}).Where("is_active = ?", true)

	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		if !domain.ValidCategory(category) {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
				"Category must be one of men, women, unisex", nil)
		}
		db = db.Where("category = ?", category)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("name ILIKE ?", "%"+q+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}

	var rows []domain.Product
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return ok(c, rows)
}

func getCatalogProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ? AND is_active = ?", id, true).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}
