package checkout

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/urbanthreads/storefront/internal/domain"
)

// Wizard steps.
const (
	StepForm         = "form"
	StepPayment      = "payment"
	StepConfirmation = "confirmation"
)

var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrAddressRequired = errors.New("checkout: delivery address is required")
	ErrReceiptRequired = errors.New("checkout: payment receipt not attached")
	ErrWrongStep       = errors.New("checkout: action not valid for current step")
	ErrCompleted       = errors.New("checkout: wizard already completed")
)

// FormData is the customer-entered checkout form. It survives back
// navigation from the payment step.
type FormData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Note      string `json:"note"`
}

func (f FormData) CustomerName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// Wizard is the session checkout state machine: form -> payment ->
// confirmation. The total and order number are frozen when the form is
// submitted; later cart mutations do not reprice the order.
type Wizard struct {
	Step           string            `json:"step"`
	Form           FormData          `json:"form"`
	DeliveryOption string            `json:"delivery_option"`
	SelectedState  string            `json:"selected_state"`
	OrderNumber    string            `json:"order_number"`
	Quote          Quote             `json:"quote"`
	FrozenItems    []domain.CartItem `json:"frozen_items"`
	ReceiptURL     string            `json:"receipt_url"`
	SubmitError    string            `json:"submit_error,omitempty"`
	OrderID        int64             `json:"order_id,string,omitempty"`
}

func NewWizard() *Wizard {
	return &Wizard{Step: StepForm}
}

// Completed reports whether the wizard reached the confirmation step. A
// completed wizard is terminal; starting another checkout requires a fresh
// wizard.
func (w *Wizard) Completed() bool {
	return w.Step == StepConfirmation
}

// SubmitDetails moves form -> payment. It validates the delivery address,
// normalizes the delivery option for the selected state, snapshots the cart
// lines and freezes the priced total and order number.
func (w *Wizard) SubmitDetails(form FormData, option, state string, cart domain.Cart, rates Rates) error {
	switch w.Step {
	case StepForm:
	case StepConfirmation:
		return ErrCompleted
	default:
		return ErrWrongStep
	}
	if len(cart.Items) == 0 {
		return ErrEmptyCart
	}

	option = rates.NormalizeDelivery(option, state)
	if option == domain.DeliveryCourier && strings.TrimSpace(form.Address) == "" {
		return ErrAddressRequired
	}

	w.Form = form
	w.DeliveryOption = option
	w.SelectedState = state
	w.Quote = Price(cart, option, state, rates)
	w.FrozenItems = append([]domain.CartItem(nil), cart.Items...)
	w.OrderNumber = NewOrderNumber()
	w.Step = StepPayment
	return nil
}

// Back moves payment -> form, keeping the entered form data.
func (w *Wizard) Back() error {
	if w.Step == StepConfirmation {
		return ErrCompleted
	}
	if w.Step != StepPayment {
		return ErrWrongStep
	}
	w.Step = StepForm
	return nil
}

// AttachReceipt records the uploaded payment receipt URL.
func (w *Wizard) AttachReceipt(url string) error {
	if w.Step == StepConfirmation {
		return ErrCompleted
	}
	if w.Step != StepPayment {
		return ErrWrongStep
	}
	w.ReceiptURL = url
	return nil
}

// CanConfirm reports whether the wizard is ready for order submission.
func (w *Wizard) CanConfirm() error {
	if w.Step == StepConfirmation {
		return ErrCompleted
	}
	if w.Step != StepPayment {
		return ErrWrongStep
	}
	if w.ReceiptURL == "" {
		return ErrReceiptRequired
	}
	return nil
}

// Confirm finishes the payment step after the submission attempt. With
// strict=false the wizard advances to confirmation even when submission
// failed, keeping the error on the state for the caller to surface; this
// preserves the storefront's never-block-the-customer behavior. With
// strict=true a failed submission keeps the wizard on the payment step.
// The returned bool reports whether the cart should be cleared.
func (w *Wizard) Confirm(orderID int64, submitErr error, strict bool) (bool, error) {
	if err := w.CanConfirm(); err != nil {
		return false, err
	}

	if submitErr != nil {
		w.SubmitError = submitErr.Error()
		if strict {
			return false, submitErr
		}
		w.Step = StepConfirmation
		return true, nil
	}

	w.SubmitError = ""
	w.OrderID = orderID
	w.Step = StepConfirmation
	return true, nil
}
