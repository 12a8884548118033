package storeapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pkg/errors"
	"github.com/urbanthreads/storefront/internal/cart"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
)

// registerCartRoutes registers the session cart endpoints
func registerCartRoutes() {
	webserver.PubGET("/cart", getCart)
	webserver.PubPOST("/cart/items", addCartItem)
	webserver.PubPUT("/cart/items/:pid", updateCartItem)
	webserver.PubDELETE("/cart/items/:pid", removeCartItem)
	webserver.PubDELETE("/cart", clearCart)
}

func cartView(crt *domain.Cart) map[string]interface{} {
	return map[string]interface{}{
		"items":    crt.Items,
		"count":    crt.Count(),
		"subtotal": crt.Subtotal(),
	}
}

func getCart(c echo.Context) error {
	sid := sessionID(c)
	crt, err := sessionCart(c.Request().Context(), sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load cart", err.Error())
	}
	return ok(c, cartView(crt))
}

type addItemPayload struct {
	ProductID int64  `json:"product_id,string" validate:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// addCartItem adds a catalog product to the session cart, snapshotting its
// current name, price and image onto the cart line.
func addCartItem(c echo.Context) error {
	var payload addItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", err.Error())
	}
	if payload.Quantity < 1 {
		payload.Quantity = 1
	}

	var p domain.Product
	err := GetDB(c).Where("id = ? AND is_active = ?", payload.ProductID, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load product", err.Error())
	}

	sid := sessionID(c)
	ctx := c.Request().Context()
	crt, err := sessionCart(ctx, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load cart", err.Error())
	}

	crt.Upsert(domain.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  payload.Quantity,
		Image:     p.MainImage,
		Size:      payload.Size,
		Color:     payload.Color,
	})
	if err := sessions.SaveCart(ctx, sid, crt); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save cart", err.Error())
	}
	return ok(c, cartView(crt))
}

type updateItemPayload struct {
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
	Color    string `json:"color"`
}

// updateCartItem sets a line's quantity; zero or less removes the line.
// The line is addressed by product ID plus the size/color variant.
func updateCartItem(c echo.Context) error {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload updateItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", err.Error())
	}

	sid := sessionID(c)
	ctx := c.Request().Context()
	crt, err := sessionCart(ctx, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load cart", err.Error())
	}

	if !crt.SetQuantity(pid, payload.Size, payload.Color, payload.Quantity) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Cart line not found", nil)
	}
	if err := sessions.SaveCart(ctx, sid, crt); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save cart", err.Error())
	}
	return ok(c, cartView(crt))
}

func removeCartItem(c echo.Context) error {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	sid := sessionID(c)
	ctx := c.Request().Context()
	crt, err := sessionCart(ctx, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load cart", err.Error())
	}
	if !crt.SetQuantity(pid, c.QueryParam("size"), c.QueryParam("color"), 0) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Cart line not found", nil)
	}
	if err := sessions.SaveCart(ctx, sid, crt); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save cart", err.Error())
	}
	return ok(c, cartView(crt))
}

func clearCart(c echo.Context) error {
	sid := sessionID(c)
	if err := sessions.DeleteCart(c.Request().Context(), sid); err != nil && !errors.Is(err, cart.ErrNotFound) {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to clear cart", err.Error())
	}
	return ok(c, cartView(&domain.Cart{}))
}
