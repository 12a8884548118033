package order

import (
	"context"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/pkg/common"
	"github.com/urbanthreads/storefront/pkg/metrics"
)

// TopicOrderCreated is published on the event bus after a successful
// submission. Subscribers (mail, webhook) run asynchronously and must not
// affect the order outcome.
const TopicOrderCreated = "order:created"

var (
	ErrNoItems         = errors.New("order: no items")
	ErrInvalidItem     = errors.New("order: item quantity must be at least 1 and price non-negative")
	ErrAddressRequired = errors.New("order: delivery address required")
	ErrDuplicateNumber = errors.New("order: order number already exists")
)

// ItemPayload is one submitted order line.
type ItemPayload struct {
	ProductID   int64           `json:"product_id,string"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
}

// Payload is a complete order submission.
type Payload struct {
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DeliveryOption  string          `json:"delivery_option"`
	SelectedState   string          `json:"selected_state"`
	DeliveryAddress string          `json:"delivery_address"`
	City            string          `json:"city"`
	Note            string          `json:"note"`
	ReceiptURL      string          `json:"receipt_url"`
	Items           []ItemPayload   `json:"items"`
}

// Result records the outcome of one best-effort side effect. Failed stock
// decrements do not fail the order; they are reported here so callers and
// operators can see the mismatch instead of it vanishing.
type Result struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Error  string `json:"error,omitempty"`
}

func (r Result) Ok() bool { return r.Error == "" }

// Options tunes the submission behavior. Atomic wraps order, items and
// stock in one transaction; disabling it reproduces the legacy unguarded
// sequence with a compensating order delete. MaxAttempts bounds the
// order-number regeneration on uniqueness conflicts.
type Options struct {
	Atomic      bool
	MaxAttempts int
}

func DefaultOptions() Options {
	return Options{Atomic: true, MaxAttempts: 3}
}

// Service persists submitted orders.
type Service struct {
	db  *gorm.DB
	bus EventBus.Bus
}

func NewService(db *gorm.DB, bus EventBus.Bus) *Service {
	return &Service{db: db, bus: bus}
}

func (p Payload) validate() error {
	if len(p.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range p.Items {
		if it.Quantity < 1 || it.Price.IsNegative() {
			return ErrInvalidItem
		}
	}
	if p.DeliveryOption == domain.DeliveryCourier && strings.TrimSpace(p.DeliveryAddress) == "" {
		return ErrAddressRequired
	}
	return nil
}

// Submit creates the order row plus its items, decrements stock for lines
// carrying a product reference, and publishes the created event. On an
// order-number conflict a fresh number is generated and the insert retried,
// bounded by opts.MaxAttempts.
func (s *Service) Submit(ctx context.Context, p Payload, opts Options) (*domain.Order, []Result, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}
	if p.OrderNumber == "" {
		p.OrderNumber = checkout.NewOrderNumber()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var (
		ord     *domain.Order
		results []Result
		err     error
	)
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if opts.Atomic {
			ord, results, err = s.submitAtomic(ctx, p)
		} else {
			ord, results, err = s.submitSequential(ctx, p)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			break
		}
		// same-millisecond collision on the timestamp-derived number
		p.OrderNumber = checkout.NewOrderNumber()
		zap.L().Warn("order number conflict, regenerated",
			zap.String("order_number", p.OrderNumber), zap.Int("attempt", attempt))
	}
	if err != nil {
		metrics.Counter(metrics.OrdersFailed)
		return nil, results, err
	}

	metrics.Counter(metrics.OrdersPlaced)
	zap.L().Info("order placed",
		zap.String("order_number", ord.OrderNumber),
		zap.String("total", ord.TotalAmount.String()),
		zap.Int("items", len(ord.Items)))

	if s.bus != nil {
		s.bus.Publish(TopicOrderCreated, ord)
	}
	return ord, results, nil
}

func (p Payload) toOrder() *domain.Order {
	ord := &domain.Order{
		ID:              common.UUIDint64(),
		OrderNumber:     p.OrderNumber,
		CustomerName:    p.CustomerName,
		CustomerEmail:   p.CustomerEmail,
		CustomerPhone:   p.CustomerPhone,
		TotalAmount:     p.TotalAmount,
		Status:          domain.OrderPending,
		DeliveryOption:  p.DeliveryOption,
		SelectedState:   p.SelectedState,
		DeliveryAddress: p.DeliveryAddress,
		City:            p.City,
		Note:            p.Note,
		PaymentVerified: false,
		ReceiptURL:      p.ReceiptURL,
	}
	for _, it := range p.Items {
		ord.Items = append(ord.Items, domain.OrderItem{
			ID:          common.UUIDint64(),
			OrderID:     ord.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Size:        it.Size,
			Color:       it.Color,
		})
	}
	return ord
}

func (s *Service) submitAtomic(ctx context.Context, p Payload) (*domain.Order, []Result, error) {
	ord := p.toOrder()
	var results []Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := ord.Items
		ord.Items = nil
		if err := tx.Create(ord).Error; err != nil {
			ord.Items = items
			return wrapInsertErr(err, "insert order")
		}
		if err := tx.Create(&items).Error; err != nil {
			ord.Items = items
			return errors.Wrap(err, "insert order items")
		}
		ord.Items = items

		results = decrementStock(tx, p.Items)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ord, results, nil
}

// submitSequential is the legacy non-transactional path: order insert, item
// inserts, then a compensating order delete when an item insert fails. The
// compensation itself is unguarded; if the delete fails the orphan order
// row remains.
func (s *Service) submitSequential(ctx context.Context, p Payload) (*domain.Order, []Result, error) {
	db := s.db.WithContext(ctx)
	ord := p.toOrder()
	items := ord.Items
	ord.Items = nil

	if err := db.Create(ord).Error; err != nil {
		return nil, nil, wrapInsertErr(err, "insert order")
	}

	if err := db.Create(&items).Error; err != nil {
		if delErr := db.Delete(&domain.Order{}, ord.ID).Error; delErr != nil {
			zap.L().Error("compensating order delete failed, orphan order row remains",
				zap.Int64("order_id", ord.ID), zap.Error(delErr))
		}
		return nil, nil, errors.Wrap(err, "insert order items")
	}
	ord.Items = items

	results := decrementStock(db, p.Items)
	return ord, results, nil
}

// decrementStock performs a guarded decrement per item with a product
// reference: the update only applies while enough stock remains, so stock
// never goes negative. A failed guard is reported but the item stays
// ordered.
func decrementStock(db *gorm.DB, items []ItemPayload) []Result {
	var results []Result
	for _, it := range items {
		if it.ProductID == 0 {
			continue
		}
		r := Result{Op: "stock_decrement", Target: it.ProductName}
		res := db.Model(&domain.Product{}).
			Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
		switch {
		case res.Error != nil:
			r.Error = res.Error.Error()
		case res.RowsAffected == 0:
			r.Error = "insufficient stock"
			metrics.Counter(metrics.StockShortfalls)
			zap.L().Warn("stock decrement guard failed, item ordered anyway",
				zap.Int64("product_id", it.ProductID), zap.Int("quantity", it.Quantity))
		}
		results = append(results, r)
	}
	return results
}

func wrapInsertErr(err error, msg string) error {
	if isDuplicateKey(err) {
		return ErrDuplicateNumber
	}
	return errors.Wrap(err, msg)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "duplicate key value")
}
