package storeapi

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"

	"github.com/pkg/errors"
	"github.com/urbanthreads/storefront/internal/cart"
	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/order"
	"github.com/urbanthreads/storefront/internal/webserver"
	"github.com/urbanthreads/storefront/pkg/common"
	"github.com/urbanthreads/storefront/pkg/metrics"
)

// registerCheckoutRoutes registers the checkout wizard endpoints
func registerCheckoutRoutes() {
	webserver.PubGET("/checkout", getCheckout)
	webserver.PubGET("/checkout/quote", getCheckoutQuote)
	webserver.PubPOST("/checkout/details", postCheckoutDetails)
	webserver.PubPOST("/checkout/back", postCheckoutBack)
	webserver.PubPOST("/checkout/receipt", postCheckoutReceipt)
	webserver.PubPOST("/checkout/confirm", postCheckoutConfirm)
	webserver.PubPOST("/orders", postOrder)
}

func sessionWizard(c echo.Context, sid string) (*checkout.Wizard, error) {
	w, err := sessions.GetWizard(c.Request().Context(), sid)
	if errors.Is(err, cart.ErrNotFound) {
		return checkout.NewWizard(), nil
	}
	return w, err
}

func wizardView(c echo.Context, w *checkout.Wizard) map[string]interface{} {
	rates := GetAppContext(c).ConfigMgr().Rates()
	return map[string]interface{}{
		"wizard":         w,
		"pickup_address": rates.PickupAddress,
	}
}

func getCheckout(c echo.Context) error {
	sid := sessionID(c)
	w, err := sessionWizard(c, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load checkout", err.Error())
	}
	return ok(c, wizardView(c, w))
}

// getCheckoutQuote prices the current cart for a delivery option and state
// without touching the wizard, for live totals on the form step.
func getCheckoutQuote(c echo.Context) error {
	sid := sessionID(c)
	crt, err := sessionCart(c.Request().Context(), sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load cart", err.Error())
	}

	option := c.QueryParam("delivery_option")
	state := c.QueryParam("state")
	rates := GetAppContext(c).ConfigMgr().Rates()
	quote := checkout.Price(*crt, option, state, rates)

	return ok(c, map[string]interface{}{
		"quote":            quote,
		"delivery_option":  rates.NormalizeDelivery(option, state),
		"pickup_available": rates.PickupAvailable(state),
	})
}

type detailsPayload struct {
	checkout.FormData
	DeliveryOption string `json:"delivery_option"`
	State          string `json:"state"`
}

func postCheckoutDetails(c echo.Context) error {
	var payload detailsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse checkout form", err.Error())
	}

	sid := sessionID(c)
	ctx := c.Request().Context()
	crt, err := sessionCart(ctx, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load cart", err.Error())
	}
	w, err := sessionWizard(c, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load checkout", err.Error())
	}

	// a finished checkout with a refilled cart starts a new order
	if w.Completed() && len(crt.Items) > 0 {
		if err := sessions.DeleteWizard(ctx, sid); err != nil {
			return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to reset checkout", err.Error())
		}
		w = checkout.NewWizard()
	}

	rates := GetAppContext(c).ConfigMgr().Rates()
	if err := w.SubmitDetails(payload.FormData, payload.DeliveryOption, payload.State, *crt, rates); err != nil {
		return failCheckout(c, err)
	}
	if err := sessions.SaveWizard(ctx, sid, w); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save checkout", err.Error())
	}
	return ok(c, wizardView(c, w))
}

func postCheckoutBack(c echo.Context) error {
	sid := sessionID(c)
	w, err := sessionWizard(c, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load checkout", err.Error())
	}
	if err := w.Back(); err != nil {
		return failCheckout(c, err)
	}
	if err := sessions.SaveWizard(c.Request().Context(), sid, w); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save checkout", err.Error())
	}
	return ok(c, wizardView(c, w))
}

// postCheckoutReceipt stores the uploaded bank-transfer receipt and attaches
// its public URL to the wizard.
func postCheckoutReceipt(c echo.Context) error {
	sid := sessionID(c)
	w, err := sessionWizard(c, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load checkout", err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Receipt file is required", nil)
	}
	appCtx := GetAppContext(c)
	maxBytes := appCtx.ConfigMgr().MaxUploadBytes()
	if file.Size > maxBytes {
		return fail(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("Receipt exceeds the %s limit", bytes.Format(maxBytes)), nil)
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
			fmt.Sprintf("Receipt exceeds the %s limit", bytes.Format(maxBytes)), nil)
	}

	name := path.Join("receipts", fmt.Sprintf("%d-%s", common.UUIDint64(), common.SanitizeFilename(file.Filename)))
	contentType := file.Header.Get("Content-Type")
	if _, err := appCtx.Objects().Put(c.Request().Context(), name, data, contentType); err != nil {
		return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to store receipt", err.Error())
	}
	url := fmt.Sprintf("%s/public/%s", strings.TrimRight(appCtx.Config().Web.PublicURL, "/"), name)

	if err := w.AttachReceipt(url); err != nil {
		return failCheckout(c, err)
	}
	if err := sessions.SaveWizard(c.Request().Context(), sid, w); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save checkout", err.Error())
	}
	metrics.Counter(metrics.ReceiptsUploaded)
	return ok(c, wizardView(c, w))
}

// postCheckoutConfirm submits the frozen order. Unless strict confirmation
// is enabled, the wizard reaches the confirmation step even when the
// submission fails; the failure is kept on the wizard state.
func postCheckoutConfirm(c echo.Context) error {
	sid := sessionID(c)
	ctx := c.Request().Context()
	w, err := sessionWizard(c, sid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load checkout", err.Error())
	}
	if err := w.CanConfirm(); err != nil {
		return failCheckout(c, err)
	}

	appCtx := GetAppContext(c)
	payload := order.Payload{
		OrderNumber:     w.OrderNumber,
		CustomerName:    w.Form.CustomerName(),
		CustomerEmail:   w.Form.Email,
		CustomerPhone:   w.Form.Phone,
		TotalAmount:     w.Quote.Total,
		DeliveryOption:  w.DeliveryOption,
		SelectedState:   w.SelectedState,
		DeliveryAddress: w.Form.Address,
		City:            w.Form.City,
		Note:            w.Form.Note,
		ReceiptURL:      w.ReceiptURL,
	}
	for _, it := range w.FrozenItems {
		payload.Items = append(payload.Items, order.ItemPayload{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Size:        it.Size,
			Color:       it.Color,
		})
	}

	svc := order.NewService(appCtx.DB(), appCtx.Bus())
	ord, results, submitErr := svc.Submit(ctx, payload, appCtx.ConfigMgr().SubmitOptions())

	var orderID int64
	if ord != nil {
		orderID = ord.ID
		// the number may have been regenerated on conflict
		w.OrderNumber = ord.OrderNumber
	}
	clearCart, err := w.Confirm(orderID, submitErr, appCtx.ConfigMgr().StrictConfirm())
	if err != nil {
		if saveErr := sessions.SaveWizard(ctx, sid, w); saveErr != nil {
			return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save checkout", saveErr.Error())
		}
		return fail(c, http.StatusUnprocessableEntity, "ORDER_FAILED", "Order submission failed", err.Error())
	}
	if clearCart {
		_ = sessions.DeleteCart(ctx, sid)
	}
	if err := sessions.SaveWizard(ctx, sid, w); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save checkout", err.Error())
	}

	return ok(c, map[string]interface{}{
		"wizard":  w,
		"order":   ord,
		"results": results,
	})
}

// postOrder is the direct order submission API, bypassing the wizard.
func postOrder(c echo.Context) error {
	var payload order.Payload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}

	appCtx := GetAppContext(c)
	svc := order.NewService(appCtx.DB(), appCtx.Bus())
	ord, results, err := svc.Submit(c.Request().Context(), payload, appCtx.ConfigMgr().SubmitOptions())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, order.ErrNoItems) || errors.Is(err, order.ErrInvalidItem) ||
			errors.Is(err, order.ErrAddressRequired) {
			status = http.StatusBadRequest
		}
		return fail(c, status, "ORDER_FAILED", "Order submission failed", err.Error())
	}
	return ok(c, map[string]interface{}{
		"order":   ord,
		"results": results,
	})
}

// failCheckout maps wizard errors onto HTTP statuses.
func failCheckout(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", "Your cart is empty", nil)
	case errors.Is(err, checkout.ErrAddressRequired):
		return fail(c, http.StatusBadRequest, "ADDRESS_REQUIRED", "Delivery address is required", nil)
	case errors.Is(err, checkout.ErrReceiptRequired):
		return fail(c, http.StatusBadRequest, "RECEIPT_REQUIRED", "Upload your payment receipt first", nil)
	case errors.Is(err, checkout.ErrCompleted):
		return fail(c, http.StatusConflict, "CHECKOUT_COMPLETED", "Checkout already completed", nil)
	case errors.Is(err, checkout.ErrWrongStep):
		return fail(c, http.StatusConflict, "WRONG_STEP", "Action not valid for the current checkout step", nil)
	default:
		return fail(c, http.StatusInternalServerError, "CHECKOUT_ERROR", "Checkout failed", err.Error())
	}
}
