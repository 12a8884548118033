package notify

import (
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"github.com/urbanthreads/storefront/config"
	"github.com/urbanthreads/storefront/internal/domain"
)

// Webhook posts created orders as JSON to a configured operations endpoint,
// with a bounded retry. The order payload carries its own identity
// (order_number), so redelivery on retry is safe for the receiver to
// deduplicate.
type Webhook struct {
	url     string
	timeout time.Duration
	retries int
}

func NewWebhook(cfg config.WebhookConfig) *Webhook {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Webhook{url: cfg.URL, timeout: timeout, retries: retries}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w.url != ""
}

// Notify delivers the order event. Failures after all attempts are
// returned for the dispatcher to log and count; they never fail the order.
func (w *Webhook) Notify(ord *domain.Order) error {
	if w.url == "" {
		return nil
	}
	var code int
	err := gout.POST(w.url).
		SetTimeout(w.timeout).
		SetJSON(gout.H{
			"event":        "order.created",
			"order_number": ord.OrderNumber,
			"order":        ord,
		}).
		Code(&code).
		F().Retry().Attempt(w.retries).WaitTime(time.Second).MaxWaitTime(5 * time.Second).
		Do()
	if err != nil {
		return errors.Wrap(err, "notify: webhook post")
	}
	if code >= 300 {
		return errors.Errorf("notify: webhook status %d", code)
	}
	return nil
}
