package cart

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
)

// SessionTTL is how long an idle cart/checkout session survives.
const SessionTTL = 24 * time.Hour

// ErrNotFound is returned when no session state exists for the key.
var ErrNotFound = errors.New("cart: session not found")

// Store holds session-scoped checkout state: the cart and the wizard. Each
// browser session owns one entry, keyed by its session ID; there is no
// process-wide cart.
type Store interface {
	GetCart(ctx context.Context, sid string) (*domain.Cart, error)
	SaveCart(ctx context.Context, sid string, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sid string) error

	GetWizard(ctx context.Context, sid string) (*checkout.Wizard, error)
	SaveWizard(ctx context.Context, sid string, w *checkout.Wizard) error
	DeleteWizard(ctx context.Context, sid string) error
}
