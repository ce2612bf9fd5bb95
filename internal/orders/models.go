package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog row an order item snapshots at checkout.
type Product struct {
	ID     string
	NameAr string
	NameEn string
	Price  decimal.Decimal
	Active bool
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	City            string          `json:"city"`
	Notes           string          `json:"notes,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Status          Status          `json:"status"`         // lihat status.go
	PaymentStatus   PaymentStatus   `json:"payment_status"` // pending | completed | failed
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	IdempotencyKey  string          `json:"-"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	ShippingCarrier string          `json:"shipping_carrier,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	PackedAt        *time.Time      `json:"packed_at,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// OrderItem is immutable once written; name and price are copies taken at order time.
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// AuthContext is the resolved caller of an admin operation.
type AuthContext struct {
	UserID string
	Roles  []Role
}

type Role string

const RoleAdmin Role = "admin"

func (a AuthContext) IsAdmin() bool {
	if a.UserID == "" {
		return false
	}
	for _, r := range a.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}
