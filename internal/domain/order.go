package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "order_placed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists every status in display order.
var AllStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// OrderLine keeps the unit price captured when the order was placed.
// It is never recomputed from the catalog.
type OrderLine struct {
	ProductRef          string          `json:"product_ref"`
	Quantity            int             `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unit_price_at_purchase"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID           uuid.UUID
	OwnerUserID  string
	Lines        []OrderLine
	TotalAmount  decimal.Decimal
	ShippingInfo ShippingInfo
	Status       OrderStatus
	PlacedAt     time.Time
	UpdatedAt    time.Time
}

// MoneyPlaces is the precision unit prices are captured at when an order is
// placed. Totals are exact sums of captured lines, so they never need rounding.
const MoneyPlaces int32 = 2

// TotalOf sums quantity * unit price over lines.
func TotalOf(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// NewOrder builds a freshly placed order for owner. The total is derived from lines.
func NewOrder(owner string, lines []OrderLine, shipping ShippingInfo, now time.Time) *Order {
	return &Order{
		ID:           uuid.New(),
		OwnerUserID:  owner,
		Lines:        lines,
		TotalAmount:  TotalOf(lines),
		ShippingInfo: shipping,
		Status:       OrderStatusPlaced,
		PlacedAt:     now,
		UpdatedAt:    now,
	}
}

// OrderFilter narrows admin order listings. Zero values mean "no filter".
type OrderFilter struct {
	Status OrderStatus
	Search string
}
