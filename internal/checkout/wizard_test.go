package checkout

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/urbanthreads/storefront/internal/domain"
)

func testForm() FormData {
	return FormData{
		FirstName: "Ife",
		LastName:  "Ajayi",
		Email:     "ife@example.com",
		Phone:     "08096539067",
		Address:   "12 Adeola Odeku St",
		City:      "Victoria Island",
	}
}

func TestWizardHappyPath(t *testing.T) {
	w := NewWizard()
	require.Equal(t, StepForm, w.Step)

	err := w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates())
	require.NoError(t, err)
	require.Equal(t, StepPayment, w.Step)
	require.NotEmpty(t, w.OrderNumber)
	require.True(t, w.Quote.Total.Equal(decimal.RequireFromString("47837.5")))
	require.Len(t, w.FrozenItems, 2)

	require.NoError(t, w.AttachReceipt("https://files.local/receipts/r1.jpg"))

	cleared, err := w.Confirm(42, nil, false)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Equal(t, StepConfirmation, w.Step)
	require.EqualValues(t, 42, w.OrderID)
	require.Empty(t, w.SubmitError)
}

func TestWizardEmptyCart(t *testing.T) {
	w := NewWizard()
	err := w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", domain.Cart{}, DefaultRates())
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Equal(t, StepForm, w.Step)
}

func TestWizardDeliveryRequiresAddress(t *testing.T) {
	w := NewWizard()
	form := testForm()
	form.Address = "   "

	err := w.SubmitDetails(form, domain.DeliveryCourier, "Abuja", sampleCart(), DefaultRates())
	require.ErrorIs(t, err, ErrAddressRequired)

	// pickup outside the home state is normalized to delivery, so the
	// address requirement applies there too
	err = w.SubmitDetails(form, domain.DeliveryPickup, "Lagos", sampleCart(), DefaultRates())
	require.ErrorIs(t, err, ErrAddressRequired)
}

func TestWizardFreezesTotal(t *testing.T) {
	w := NewWizard()
	cart := sampleCart()
	require.NoError(t, w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", cart, DefaultRates()))

	frozen := w.Quote.Total
	// mutating the cart after submission does not reprice the order
	cart.Upsert(domain.CartItem{ProductID: 9, Price: decimal.NewFromInt(99999), Quantity: 3})
	require.True(t, w.Quote.Total.Equal(frozen))
	require.Len(t, w.FrozenItems, 2)
}

func TestWizardBackPreservesForm(t *testing.T) {
	w := NewWizard()
	require.NoError(t, w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates()))
	require.NoError(t, w.Back())
	require.Equal(t, StepForm, w.Step)
	require.Equal(t, "Ife", w.Form.FirstName)
	require.Equal(t, "12 Adeola Odeku St", w.Form.Address)
}

func TestWizardConfirmRequiresReceipt(t *testing.T) {
	w := NewWizard()
	require.NoError(t, w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates()))

	_, err := w.Confirm(0, nil, false)
	require.ErrorIs(t, err, ErrReceiptRequired)
}

// Current storefront behavior: a failed submission still advances to the
// confirmation step and clears the cart, with the error kept on the state.
func TestWizardConfirmAdvancesOnFailure(t *testing.T) {
	w := NewWizard()
	require.NoError(t, w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates()))
	require.NoError(t, w.AttachReceipt("https://files.local/receipts/r2.jpg"))

	cleared, err := w.Confirm(0, errors.New("order insert failed"), false)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Equal(t, StepConfirmation, w.Step)
	require.Equal(t, "order insert failed", w.SubmitError)
}

func TestWizardConfirmStrictBlocksOnFailure(t *testing.T) {
	w := NewWizard()
	require.NoError(t, w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates()))
	require.NoError(t, w.AttachReceipt("https://files.local/receipts/r3.jpg"))

	submitErr := errors.New("order insert failed")
	cleared, err := w.Confirm(0, submitErr, true)
	require.ErrorIs(t, err, submitErr)
	require.False(t, cleared)
	require.Equal(t, StepPayment, w.Step)
	require.Equal(t, "order insert failed", w.SubmitError)
}

// Confirmation is terminal; every transition out of it fails.
func TestWizardConfirmationIsTerminal(t *testing.T) {
	w := NewWizard()
	require.NoError(t, w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates()))
	require.NoError(t, w.AttachReceipt("https://files.local/receipts/r4.jpg"))
	_, err := w.Confirm(7, nil, false)
	require.NoError(t, err)

	require.ErrorIs(t, w.Back(), ErrCompleted)
	require.ErrorIs(t, w.AttachReceipt("x"), ErrCompleted)
	_, err = w.Confirm(8, nil, false)
	require.ErrorIs(t, err, ErrCompleted)
	err = w.SubmitDetails(testForm(), domain.DeliveryPickup, "Abuja", sampleCart(), DefaultRates())
	require.ErrorIs(t, err, ErrCompleted)
}
