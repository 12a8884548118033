package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"

	"github.com/urbanthreads/storefront/config"
	"github.com/urbanthreads/storefront/internal/domain"
)

var nairaPrinter = message.NewPrinter(language.English)

// FormatNaira renders an amount with grouping, e.g. ₦52,837.50.
func FormatNaira(d decimal.Decimal) string {
	f, _ := d.Float64()
	return nairaPrinter.Sprintf("₦%.2f", f)
}

// Mailer sends order notification emails over SMTP. When mail is not
// configured every send is a silent no-op; orders never depend on it.
type Mailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	if cfg.Enabled() {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	}
	return m
}

// Enabled reports whether the mailer will actually send.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

func (m *Mailer) from() string {
	if m.cfg.From != "" {
		return m.cfg.From
	}
	return m.cfg.Username
}

func (m *Mailer) send(to, subject, body string) error {
	if m.dialer == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from(), "UrbanThreads Store")
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// SendCustomerConfirmation mails the order confirmation to the customer.
func (m *Mailer) SendCustomerConfirmation(ord *domain.Order, pickupAddress string) error {
	if ord.CustomerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Order Confirmation #%s", ord.OrderNumber)
	return m.send(ord.CustomerEmail, subject, CustomerBody(ord, pickupAddress))
}

// SendStaleOrderReminder nudges the operator about orders still pending
// verification after the reminder window.
func (m *Mailer) SendStaleOrderReminder(count int64) error {
	if m.cfg.OwnerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("%d orders awaiting payment verification", count)
	body := fmt.Sprintf(
		"%d orders have been pending for over 48 hours.\n"+
			"Review uploaded receipts and confirm or cancel them in the admin panel.\n", count)
	return m.send(m.cfg.OwnerEmail, subject, body)
}

// SendOwnerNotification mails the new-order alert to the store operator.
func (m *Mailer) SendOwnerNotification(ord *domain.Order, pickupAddress string) error {
	if m.cfg.OwnerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("NEW ORDER #%s - %s", ord.OrderNumber, ord.CustomerName)
	return m.send(m.cfg.OwnerEmail, subject, OwnerBody(ord, pickupAddress))
}

func itemLines(items []domain.OrderItem) string {
	if len(items) == 0 {
		return "No items"
	}
	var b strings.Builder
	for _, it := range items {
		line := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(&b, "- %s x%d - %s\n", it.ProductName, it.Quantity, FormatNaira(line))
	}
	return strings.TrimRight(b.String(), "\n")
}

func deliveryLines(ord *domain.Order, pickupAddress string) string {
	if ord.DeliveryOption == domain.DeliveryPickup {
		return fmt.Sprintf("Method: PICKUP\nState: %s\nPickup Address: %s",
			ord.SelectedState, pickupAddress)
	}
	addr := ord.DeliveryAddress
	if ord.City != "" {
		addr += ", " + ord.City
	}
	return fmt.Sprintf("Method: DELIVERY\nState: %s\nDelivery Address: %s",
		ord.SelectedState, addr)
}

// CustomerBody renders the plain-text confirmation email.
func CustomerBody(ord *domain.Order, pickupAddress string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order, %s!\n\n", ord.CustomerName)
	fmt.Fprintf(&b, "Order #: %s\n", ord.OrderNumber)
	fmt.Fprintf(&b, "Amount: %s\n", FormatNaira(ord.TotalAmount))
	fmt.Fprintf(&b, "%s\n\n", deliveryLines(ord, pickupAddress))
	fmt.Fprintf(&b, "ORDER ITEMS\n%s\n\n", itemLines(ord.Items))
	b.WriteString("We've received your payment receipt and will verify it within 24 hours.\n")
	b.WriteString("You'll be contacted via phone/email for next steps.\n\n")
	b.WriteString("For inquiries: 0809 653 9067\n")
	return b.String()
}

// OwnerBody renders the plain-text operator notification.
func OwnerBody(ord *domain.Order, pickupAddress string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NEW ORDER #%s\n", ord.OrderNumber)
	fmt.Fprintf(&b, "Time: %s\n\n", time.Now().Format(time.RFC1123))
	fmt.Fprintf(&b, "CUSTOMER DETAILS\nName: %s\nEmail: %s\nPhone: %s\n\n",
		ord.CustomerName, ord.CustomerEmail, ord.CustomerPhone)
	fmt.Fprintf(&b, "DELIVERY DETAILS\n%s\n\n", deliveryLines(ord, pickupAddress))
	fmt.Fprintf(&b, "ORDER ITEMS\n%s\n\n", itemLines(ord.Items))
	fmt.Fprintf(&b, "PAYMENT DETAILS\nTotal Amount: %s\n", FormatNaira(ord.TotalAmount))
	if ord.ReceiptURL != "" {
		fmt.Fprintf(&b, "Receipt: %s\n", ord.ReceiptURL)
	}
	b.WriteString("Status: Payment Receipt Uploaded\n")
	if ord.Note != "" {
		fmt.Fprintf(&b, "\nCUSTOMER NOTE\n%s\n", ord.Note)
	}
	return b.String()
}
