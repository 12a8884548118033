package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/urbanthreads/storefront/internal/domain"
)

// Rates carries the pricing parameters. Values are loaded from system
// settings; DefaultRates matches the store's launch configuration.
type Rates struct {
	TaxRate          decimal.Decimal
	HomeState        string
	HomeDeliveryFee  decimal.Decimal
	OtherDeliveryFee decimal.Decimal
	PickupAddress    string
}

func DefaultRates() Rates {
	return Rates{
		TaxRate:          decimal.RequireFromString("0.075"),
		HomeState:        "Abuja",
		HomeDeliveryFee:  decimal.NewFromInt(3000),
		OtherDeliveryFee: decimal.NewFromInt(5000),
		PickupAddress:    "Suite 5, XYZ Plaza, Central Business District, Abuja",
	}
}

// Quote is the priced breakdown of a cart. Amounts are exact decimals;
// the 7.5% tax is deliberately not rounded to whole currency units.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// PickupAvailable reports whether pickup may be offered for the state.
// Pickup exists only at the home-state store.
func (r Rates) PickupAvailable(state string) bool {
	return state == r.HomeState
}

// NormalizeDelivery forces the delivery option to courier delivery when
// pickup is not available for the selected state.
func (r Rates) NormalizeDelivery(option, state string) string {
	if option == domain.DeliveryPickup && !r.PickupAvailable(state) {
		return domain.DeliveryCourier
	}
	return option
}

// DeliveryFee returns the courier fee for a state.
func (r Rates) DeliveryFee(state string) decimal.Decimal {
	if state == r.HomeState {
		return r.HomeDeliveryFee
	}
	return r.OtherDeliveryFee
}

// Price computes the full quote for a cart. The delivery option is
// normalized first, so a pickup request outside the home state is priced
// as delivery.
func Price(cart domain.Cart, option, state string, rates Rates) Quote {
	option = rates.NormalizeDelivery(option, state)

	subtotal := cart.Subtotal()
	tax := subtotal.Mul(rates.TaxRate)

	shipping := decimal.Zero
	if option != domain.DeliveryPickup {
		shipping = rates.DeliveryFee(state)
	}

	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
