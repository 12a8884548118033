package domain

import (
	"github.com/shopspring/decimal"
)

// CartItem is one cart line. Carts are session-scoped and never persisted
// to the relational store; they live in the cart store until checkout or
// expiry.
type CartItem struct {
	ProductID int64           `json:"product_id,string"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

// Cart is the full session cart.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Subtotal is the sum of price x quantity over the cart lines.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Count is the total item quantity in the cart.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Upsert merges an item into the cart: a line with the same product, size
// and color has its quantity increased, otherwise a new line is appended.
func (c *Cart) Upsert(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID &&
			c.Items[i].Size == item.Size &&
			c.Items[i].Color == item.Color {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity sets the quantity of the matching line. Quantities below one
// remove the line.
func (c *Cart) SetQuantity(productID int64, size, color string, qty int) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID &&
			c.Items[i].Size == size &&
			c.Items[i].Color == color {
			if qty < 1 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = qty
			}
			return true
		}
	}
	return false
}
