package notify

import (
	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/order"
	"github.com/urbanthreads/storefront/pkg/metrics"
)

// PickupAddressFunc resolves the current pickup address from settings at
// send time, so admin edits apply without restart.
type PickupAddressFunc func() string

// Dispatcher subscribes to order events and runs the fire-and-forget side
// effects (customer email, operator email, ops webhook) on a worker pool.
// Every outcome is logged and counted; none affects the order.
type Dispatcher struct {
	mailer        *Mailer
	webhook       *Webhook
	pool          *ants.Pool
	pickupAddress PickupAddressFunc
}

func NewDispatcher(mailer *Mailer, webhook *Webhook, pickupAddress PickupAddressFunc) (*Dispatcher, error) {
	pool, err := ants.NewPool(8, ants.WithNonblocking(false))
	if err != nil {
		return nil, errors.Wrap(err, "notify: create worker pool")
	}
	return &Dispatcher{
		mailer:        mailer,
		webhook:       webhook,
		pool:          pool,
		pickupAddress: pickupAddress,
	}, nil
}

// Subscribe attaches the dispatcher to the bus.
func (d *Dispatcher) Subscribe(bus EventBus.Bus) error {
	return bus.SubscribeAsync(order.TopicOrderCreated, d.onOrderCreated, false)
}

func (d *Dispatcher) onOrderCreated(ord *domain.Order) {
	pickup := ""
	if d.pickupAddress != nil {
		pickup = d.pickupAddress()
	}

	if !d.mailer.Enabled() {
		zap.L().Warn("mail not configured, skipping order notification emails",
			zap.String("order_number", ord.OrderNumber))
	} else {
		d.submit(func() {
			d.record("customer email", ord,
				d.mailer.SendCustomerConfirmation(ord, pickup))
		})
		d.submit(func() {
			d.record("owner email", ord,
				d.mailer.SendOwnerNotification(ord, pickup))
		})
	}

	if d.webhook.Enabled() {
		d.submit(func() {
			err := d.webhook.Notify(ord)
			if err != nil {
				metrics.Counter(metrics.WebhooksFailed)
				zap.L().Warn("order webhook failed",
					zap.String("order_number", ord.OrderNumber), zap.Error(err))
				return
			}
			metrics.Counter(metrics.WebhooksSent)
		})
	}
}

func (d *Dispatcher) submit(task func()) {
	if err := d.pool.Submit(task); err != nil {
		zap.L().Error("notification task rejected", zap.Error(err))
	}
}

func (d *Dispatcher) record(what string, ord *domain.Order, err error) {
	if err != nil {
		metrics.Counter(metrics.EmailsFailed)
		zap.L().Warn("order notification failed",
			zap.String("kind", what),
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
		return
	}
	metrics.Counter(metrics.EmailsSent)
	zap.L().Info("order notification sent",
		zap.String("kind", what),
		zap.String("order_number", ord.OrderNumber))
}

// Release stops the worker pool.
func (d *Dispatcher) Release() {
	d.pool.Release()
}
