package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pkg/errors"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/webserver"
	"github.com/urbanthreads/storefront/pkg/common"
)

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// registerAuthRoutes registers login and logout. Login is on the public
// group; everything else under /api/admin requires the session cookie.
func registerAuthRoutes() {
	webserver.PubPOST("/admin/login", adminLogin)
	webserver.ApiPOST("/logout", adminLogout)
	webserver.ApiGET("/session", adminSession)
}

func adminLogin(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Email and password are required", nil)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	var opr domain.SysOpr
	err := GetDB(c).Where("email = ? AND status = ?", email, common.ENABLED).First(&opr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		zap.S().Warnf("admin login rejected for %s: unknown account", email)
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Login failed", err.Error())
	}

	if opr.Password != common.Sha256HashWithSalt(payload.Password, common.GetSecretSalt()) {
		zap.S().Warnf("admin login rejected for %s: bad password", email)
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}

	webserver.SetAdminCookie(c)
	c.Set(webserver.OperatorKey, opr.Email)
	GetDB(c).Model(&opr).Update("last_login", time.Now())
	auditLog(c, "login", "admin login")

	return ok(c, map[string]interface{}{
		"email":    opr.Email,
		"realname": opr.Realname,
		"level":    opr.Level,
	})
}

func adminLogout(c echo.Context) error {
	webserver.ClearAdminCookie(c)
	auditLog(c, "logout", "admin logout")
	return ok(c, nil)
}

// adminSession confirms the sentinel cookie is present; the auth middleware
// has already rejected the request otherwise.
func adminSession(c echo.Context) error {
	return ok(c, map[string]interface{}{"authenticated": true})
}
