package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/urbanthreads/storefront/internal/app"
	"github.com/urbanthreads/storefront/internal/storage"
)

// Echo context keys set for every request.
const (
	AppContextKey = "urbanthreads_app"
	OperatorKey   = "urbanthreads_operator"
)

// Admin session cookie. Its presence with the fixed value is the whole
// gate; there is no server-side session state.
const (
	AdminCookieName  = "admin-token"
	AdminCookieValue = "authenticated"
	AdminCookieAge   = 7 * 24 * time.Hour
)

type WebServer struct {
	appCtx app.AppContext
	root   *echo.Echo
	pub    *echo.Group
	api    *echo.Group
}

var server *WebServer

// Instance returns the singleton web server, for tests that need the
// underlying echo handler.
func Instance() *echo.Echo {
	return server.root
}

type CustomValidator struct {
	validate *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Init builds the echo instance, middleware and route groups. Handler
// packages register their routes afterwards through ApiGET/PubGET etc.
func Init(appCtx app.AppContext) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowCredentials: false,
	}))
	e.Use(requestLogger())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	cfg := appCtx.Config()
	if cfg.Storage.Type == "fs" && cfg.Storage.Dir != "" {
		e.Static("/public", cfg.Storage.Dir)
	} else {
		e.GET("/public/*", serveObject(appCtx))
	}

	server = &WebServer{
		appCtx: appCtx,
		root:   e,
		pub:    e.Group("/api"),
		api:    e.Group("/api/admin", adminAuth),
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

// serveObject streams uploads from the object store for backends without a
// local directory to mount, so receipt and product image URLs resolve
// regardless of the configured backend.
func serveObject(appCtx app.AppContext) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, info, err := appCtx.Objects().Get(c.Request().Context(), c.Param("*"))
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "object not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		contentType := info.ContentType
		if contentType == "" {
			contentType = echo.MIMEOctetStream
		}
		return c.Blob(http.StatusOK, contentType, data)
	}
}

// adminAuth guards the admin API behind the sentinel cookie. The login
// endpoint itself is registered on the public group.
func adminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(AdminCookieName)
		if err != nil || cookie.Value != AdminCookieValue {
			return echo.NewHTTPError(http.StatusUnauthorized, "admin authentication required")
		}
		return next(c)
	}
}

// SetAdminCookie writes the sentinel cookie after a successful login.
// It is intentionally readable by the admin front-end (HttpOnly false).
func SetAdminCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     AdminCookieName,
		Value:    AdminCookieValue,
		Path:     "/",
		MaxAge:   int(AdminCookieAge.Seconds()),
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAdminCookie expires the sentinel cookie on logout.
func ClearAdminCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:   AdminCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Admin API routes, gated by the sentinel cookie.

func ApiGET(path string, h echo.HandlerFunc) { server.api.GET(path, h) }

func ApiPOST(path string, h echo.HandlerFunc) { server.api.POST(path, h) }

func ApiPUT(path string, h echo.HandlerFunc) { server.api.PUT(path, h) }

func ApiDELETE(path string, h echo.HandlerFunc) { server.api.DELETE(path, h) }

// Public storefront routes.

func PubGET(path string, h echo.HandlerFunc) { server.pub.GET(path, h) }

func PubPOST(path string, h echo.HandlerFunc) { server.pub.POST(path, h) }

func PubPUT(path string, h echo.HandlerFunc) { server.pub.PUT(path, h) }

func PubDELETE(path string, h echo.HandlerFunc) { server.pub.DELETE(path, h) }

// Start runs the listener until the context is cancelled, then shuts the
// server down gracefully.
func Start(ctx context.Context) error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("web server listening on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.root.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.root.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
