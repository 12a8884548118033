package storeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/urbanthreads/storefront/config"
	"github.com/urbanthreads/storefront/internal/app"
	"github.com/urbanthreads/storefront/internal/cart"
	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/storage"
	"github.com/urbanthreads/storefront/internal/webserver"
)

type apiEnvelope struct {
	Code    json.RawMessage        `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func testServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	objects, err := storage.NewFSObjectStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = objects.Close() })

	application := app.NewTestApplication(config.DefaultAppConfig, db, objects)
	webserver.Init(application)
	InitRouter(cart.NewMemoryStore())
	return webserver.Instance(), db
}

// requireAmount compares a JSON-encoded decimal field against the expected
// amount, ignoring scale.
func requireAmount(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, okv := got.(string)
	require.True(t, okv, "amount field is not a string: %v", got)
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, d)
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Product{
		ID: 1, Name: "Denim Jacket", Price: decimal.NewFromInt(8500),
		Category: domain.CategoryUnisex, Stock: 5, IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&domain.Product{
		ID: 2, Name: "Retired Tee", Price: decimal.NewFromInt(4000),
		Category: domain.CategoryMen, Stock: 5, IsActive: false,
	}).Error)
}

func doJSON(e *echo.Echo, method, target string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookieName {
			return ck
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func TestCatalogHidesInactiveProducts(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Denim Jacket")
	require.NotContains(t, rec.Body.String(), "Retired Tee")

	rec = doJSON(e, http.MethodGet, "/api/products/2", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartRoundtrip(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 2, "size": "M"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sid := sessionCookie(t, rec)

	rec = doJSON(e, http.MethodGet, "/api/cart", nil, []*http.Cookie{sid})
	env := decodeEnvelope(t, rec)
	require.EqualValues(t, 2, env.Data["count"])
	requireAmount(t, "17000", env.Data["subtotal"])

	// another session sees an empty cart
	rec = doJSON(e, http.MethodGet, "/api/cart", nil, nil)
	env = decodeEnvelope(t, rec)
	require.EqualValues(t, 0, env.Data["count"])

	rec = doJSON(e, http.MethodPut, "/api/cart/items/1",
		map[string]interface{}{"quantity": 0, "size": "M"}, []*http.Cookie{sid})
	env = decodeEnvelope(t, rec)
	require.EqualValues(t, 0, env.Data["count"])
}

func attachReceipt(t *testing.T, e *echo.Echo, sid *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "receipt.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/receipt", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.AddCookie(sid)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutWizardFlow(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 2}, nil)
	sid := sessionCookie(t, rec)

	// confirm before the payment step is refused
	rec = doJSON(e, http.MethodPost, "/api/checkout/confirm", nil, []*http.Cookie{sid})
	require.Equal(t, http.StatusConflict, rec.Code)

	details := map[string]interface{}{
		"first_name":      "Ife",
		"last_name":       "Ajayi",
		"email":           "ife@example.com",
		"phone":           "08096539067",
		"delivery_option": "pickup",
		"state":           "Abuja",
	}
	rec = doJSON(e, http.MethodPost, "/api/checkout/details", details, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	wizard := env.Data["wizard"].(map[string]interface{})
	require.Equal(t, checkout.StepPayment, wizard["step"])
	quote := wizard["quote"].(map[string]interface{})
	requireAmount(t, "17000", quote["subtotal"])
	requireAmount(t, "1275", quote["tax"])
	requireAmount(t, "0", quote["shipping"])
	requireAmount(t, "18275", quote["total"])

	// confirm without a receipt is refused
	rec = doJSON(e, http.MethodPost, "/api/checkout/confirm", nil, []*http.Cookie{sid})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = attachReceipt(t, e, sid)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/checkout/confirm", nil, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	wizard = env.Data["wizard"].(map[string]interface{})
	require.Equal(t, checkout.StepConfirmation, wizard["step"])

	var ord domain.Order
	require.NoError(t, db.Preload("Items").First(&ord).Error)
	require.Equal(t, "Ife Ajayi", ord.CustomerName)
	require.Equal(t, domain.OrderPending, ord.Status)
	require.True(t, ord.TotalAmount.Equal(decimal.RequireFromString("18275")))
	require.Len(t, ord.Items, 1)
	require.Equal(t, 2, ord.Items[0].Quantity)

	var prod domain.Product
	require.NoError(t, db.First(&prod, int64(1)).Error)
	require.Equal(t, 3, prod.Stock)

	// cart is cleared after confirmation
	rec = doJSON(e, http.MethodGet, "/api/cart", nil, []*http.Cookie{sid})
	env = decodeEnvelope(t, rec)
	require.EqualValues(t, 0, env.Data["count"])
}

// A completed checkout must not lock the session out of ordering again:
// refilling the cart and submitting details starts a fresh wizard.
func TestCheckoutRestartsAfterCompletion(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 1}, nil)
	sid := sessionCookie(t, rec)

	details := map[string]interface{}{
		"first_name":      "Ife",
		"last_name":       "Ajayi",
		"email":           "ife@example.com",
		"delivery_option": "pickup",
		"state":           "Abuja",
	}
	rec = doJSON(e, http.MethodPost, "/api/checkout/details", details, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = attachReceipt(t, e, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(e, http.MethodPost, "/api/checkout/confirm", nil, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)

	// with the cart still empty the finished checkout stays terminal
	rec = doJSON(e, http.MethodPost, "/api/checkout/details", details, []*http.Cookie{sid})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "CHECKOUT_COMPLETED")

	rec = doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 2}, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/checkout/details", details, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	wizard := env.Data["wizard"].(map[string]interface{})
	require.Equal(t, checkout.StepPayment, wizard["step"])
	require.Empty(t, wizard["receipt_url"], "restarted wizard must not carry the old receipt")
	requireAmount(t, "17000", wizard["quote"].(map[string]interface{})["subtotal"])

	rec = attachReceipt(t, e, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(e, http.MethodPost, "/api/checkout/confirm", nil, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	require.EqualValues(t, 2, orders)
}

// Receipt URLs must resolve through /public even when no static directory
// is mounted; the object store serves the bytes back.
func TestUploadedReceiptServedPublicly(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 1}, nil)
	sid := sessionCookie(t, rec)

	details := map[string]interface{}{
		"first_name":      "Ife",
		"delivery_option": "pickup",
		"state":           "Abuja",
	}
	rec = doJSON(e, http.MethodPost, "/api/checkout/details", details, []*http.Cookie{sid})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = attachReceipt(t, e, sid)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	url := env.Data["wizard"].(map[string]interface{})["receipt_url"].(string)
	target := strings.TrimPrefix(url, config.DefaultAppConfig.Web.PublicURL)
	require.True(t, strings.HasPrefix(target, "/public/receipts/"))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	got := httptest.NewRecorder()
	e.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)
	require.Equal(t, "fake image bytes", got.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/public/receipts/missing.jpg", nil)
	got = httptest.NewRecorder()
	e.ServeHTTP(got, req)
	require.Equal(t, http.StatusNotFound, got.Code)
}

func TestCheckoutDeliveryRequiresAddress(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 1}, nil)
	sid := sessionCookie(t, rec)

	// pickup outside the home state is normalized to delivery, which
	// then demands an address
	details := map[string]interface{}{
		"first_name":      "Ife",
		"last_name":       "Ajayi",
		"delivery_option": "pickup",
		"state":           "Lagos",
	}
	rec = doJSON(e, http.MethodPost, "/api/checkout/details", details, []*http.Cookie{sid})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ADDRESS_REQUIRED")
}

func TestCheckoutQuoteDeliveryFees(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	rec := doJSON(e, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "1", "quantity": 2}, nil)
	sid := sessionCookie(t, rec)

	rec = doJSON(e, http.MethodGet, "/api/checkout/quote?delivery_option=delivery&state=Lagos", nil, []*http.Cookie{sid})
	env := decodeEnvelope(t, rec)
	quote := env.Data["quote"].(map[string]interface{})
	requireAmount(t, "5000", quote["shipping"])
	require.Equal(t, false, env.Data["pickup_available"])

	rec = doJSON(e, http.MethodGet, "/api/checkout/quote?delivery_option=delivery&state=Abuja", nil, []*http.Cookie{sid})
	env = decodeEnvelope(t, rec)
	quote = env.Data["quote"].(map[string]interface{})
	requireAmount(t, "3000", quote["shipping"])
	require.Equal(t, true, env.Data["pickup_available"])
}

func TestEmptyCartCannotCheckout(t *testing.T) {
	e, _ := testServer(t)

	details := map[string]interface{}{
		"first_name":      "Ife",
		"delivery_option": "pickup",
		"state":           "Abuja",
	}
	rec := doJSON(e, http.MethodPost, "/api/checkout/details", details, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "EMPTY_CART")
}

func TestDirectOrderSubmission(t *testing.T) {
	e, db := testServer(t)
	seedCatalog(t, db)

	payload := map[string]interface{}{
		"customer_name":   "Ife Ajayi",
		"customer_email":  "ife@example.com",
		"total_amount":    "9137.5",
		"delivery_option": "pickup",
		"selected_state":  "Abuja",
		"items": []map[string]interface{}{
			{"product_id": "1", "product_name": "Denim Jacket", "price": "8500", "quantity": 1},
		},
	}
	rec := doJSON(e, http.MethodPost, "/api/orders", payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&domain.Order{}).Count(&count)
	require.EqualValues(t, 1, count)

	rec = doJSON(e, http.MethodPost, "/api/orders", map[string]interface{}{"items": []interface{}{}}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
