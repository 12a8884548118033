package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. The admin panel may set any status after any other; no
// transition graph is enforced.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Delivery options.
const (
	DeliveryPickup  = "pickup"
	DeliveryCourier = "delivery"
)

// Order is a placed customer order. OrderItems carry denormalized product
// snapshots; the product rows may change or be deactivated afterwards.
type Order struct {
	ID              int64           `gorm:"primaryKey" json:"id,string"`
	OrderNumber     string          `gorm:"size:32;uniqueIndex" json:"order_number"`
	CustomerName    string          `gorm:"size:200" json:"customer_name"`
	CustomerEmail   string          `gorm:"size:200" json:"customer_email"`
	CustomerPhone   string          `gorm:"size:64" json:"customer_phone"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	Status          string          `gorm:"size:20;index;default:'pending'" json:"status"`
	DeliveryOption  string          `gorm:"size:20" json:"delivery_option"` // pickup|delivery
	SelectedState   string          `gorm:"size:64" json:"selected_state"`
	DeliveryAddress string          `gorm:"size:500" json:"delivery_address"`
	City            string          `gorm:"size:100" json:"city"`
	Note            string          `gorm:"type:text" json:"note"`
	PaymentVerified bool            `gorm:"default:false" json:"payment_verified"`
	ReceiptURL      string          `gorm:"size:1024" json:"receipt_url"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line of an order with the product state captured at the
// time of purchase. ProductID is a weak reference and may be zero for items
// that no longer map to a catalog row.
type OrderItem struct {
	ID          int64           `gorm:"primaryKey" json:"id,string"`
	OrderID     int64           `gorm:"index" json:"order_id,string"`
	ProductID   int64           `gorm:"index" json:"product_id,string"`
	ProductName string          `gorm:"size:200" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Quantity    int             `json:"quantity"`
	Size        string          `gorm:"size:32" json:"size"`
	Color       string          `gorm:"size:64" json:"color"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}
