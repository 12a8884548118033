package notify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/urbanthreads/storefront/config"
	"github.com/urbanthreads/storefront/internal/domain"
)

func testOrder() *domain.Order {
	return &domain.Order{
		OrderNumber:     "UT12345678",
		CustomerName:    "Ife Ajayi",
		CustomerEmail:   "ife@example.com",
		CustomerPhone:   "08096539067",
		TotalAmount:     decimal.RequireFromString("52837.5"),
		Status:          domain.OrderPending,
		DeliveryOption:  domain.DeliveryCourier,
		SelectedState:   "Lagos",
		DeliveryAddress: "12 Adeola Odeku St",
		City:            "Victoria Island",
		ReceiptURL:      "https://files.local/receipts/r1.jpg",
		Items: []domain.OrderItem{
			{ProductName: "Denim Jacket", Price: decimal.NewFromInt(8500), Quantity: 1},
			{ProductName: "Cargo Pants", Price: decimal.NewFromInt(18000), Quantity: 2},
		},
	}
}

func TestFormatNaira(t *testing.T) {
	require.Equal(t, "₦52,837.50", FormatNaira(decimal.RequireFromString("52837.5")))
	require.Equal(t, "₦0.00", FormatNaira(decimal.Zero))
	require.Equal(t, "₦3,337.50", FormatNaira(decimal.RequireFromString("3337.5")))
}

func TestCustomerBody(t *testing.T) {
	body := CustomerBody(testOrder(), "Suite 5, XYZ Plaza")

	require.Contains(t, body, "Order #: UT12345678")
	require.Contains(t, body, "Amount: ₦52,837.50")
	require.Contains(t, body, "Method: DELIVERY")
	require.Contains(t, body, "12 Adeola Odeku St, Victoria Island")
	require.Contains(t, body, "Cargo Pants x2 - ₦36,000.00")
	require.NotContains(t, body, "Suite 5, XYZ Plaza", "pickup address only shown for pickup orders")
}

func TestCustomerBodyPickup(t *testing.T) {
	ord := testOrder()
	ord.DeliveryOption = domain.DeliveryPickup
	ord.SelectedState = "Abuja"

	body := CustomerBody(ord, "Suite 5, XYZ Plaza")
	require.Contains(t, body, "Method: PICKUP")
	require.Contains(t, body, "Pickup Address: Suite 5, XYZ Plaza")
}

func TestOwnerBody(t *testing.T) {
	ord := testOrder()
	ord.Note = "Please call before delivery"
	body := OwnerBody(ord, "Suite 5, XYZ Plaza")

	require.Contains(t, body, "NEW ORDER #UT12345678")
	require.Contains(t, body, "Name: Ife Ajayi")
	require.Contains(t, body, "Phone: 08096539067")
	require.Contains(t, body, "Receipt: https://files.local/receipts/r1.jpg")
	require.Contains(t, body, "CUSTOMER NOTE\nPlease call before delivery")
}

// Unconfigured mail must be a no-op, not an error: orders go through
// without notifications.
func TestMailerDisabledIsNoop(t *testing.T) {
	m := NewMailer(config.MailConfig{})
	require.False(t, m.Enabled())
	require.NoError(t, m.SendCustomerConfirmation(testOrder(), ""))
	require.NoError(t, m.SendOwnerNotification(testOrder(), ""))
}
