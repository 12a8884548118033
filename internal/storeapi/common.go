package storeapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pkg/errors"
	"github.com/urbanthreads/storefront/internal/app"
	"github.com/urbanthreads/storefront/internal/cart"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
)

// SessionCookieName identifies the anonymous storefront session that owns
// the cart and checkout wizard.
const SessionCookieName = "ut_session"

var sessions cart.Store

// InitRouter registers the public storefront routes.
func InitRouter(store cart.Store) {
	sessions = store
	registerCatalogRoutes()
	registerCartRoutes()
	registerCheckoutRoutes()
}

// GetAppContext extracts the application context from the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB returns a request-scoped database handle
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"code": 0,
		"data": data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

// sessionID returns the session cookie value, issuing a fresh cookie when
// the browser has none.
func sessionID(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cart.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// sessionCart loads the session cart; a missing session yields an empty
// cart.
func sessionCart(ctx context.Context, sid string) (*domain.Cart, error) {
	crt, err := sessions.GetCart(ctx, sid)
	if errors.Is(err, cart.ErrNotFound) {
		return &domain.Cart{}, nil
	}
	return crt, err
}
