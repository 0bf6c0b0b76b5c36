package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "pending"
	OrderPaymentPaid    OrderPaymentStatus = "paid"
	OrderPaymentFailed  OrderPaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

// Online reports whether the method settles through the payment gateway.
func (m PaymentMethod) Online() bool {
	return m == PaymentMethodCard || m == PaymentMethodUPI
}

// Order carries two independent statuses: the fulfilment lifecycle and the
// payment state. TotalAmount is always computed server-side at checkout time.
// CartSnapshot is non-nil only while an online payment is awaiting
// verification; an order never holds both a snapshot and order items.
type Order struct {
	ID            uuid.UUID          `json:"id"`
	UserID        *uuid.UUID         `json:"user_id,omitempty"`
	GuestID       *string            `json:"-"`
	GuestEmail    string             `json:"guest_email,omitempty"`
	AddressID     uuid.UUID          `json:"address_id"`
	TotalAmount   float64            `json:"total_amount"`
	Status        OrderStatus        `json:"status"`
	PaymentStatus OrderPaymentStatus `json:"payment_status"`
	CartSnapshot  *CartSnapshot      `json:"-"`
	Items         []OrderItem        `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// OrderItem records the price at purchase; it is never re-read from the live
// catalog so later price changes cannot alter historical orders.
type OrderItem struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        int       `json:"quantity"`
	PriceAtPurchase float64   `json:"price_at_purchase"`
	Size            string    `json:"size,omitempty"`
	Color           string    `json:"color,omitempty"`
}

// SnapshotItem is an immutable copy of one cart line at checkout time. The
// cart item id is kept so finalization deletes exactly the lines that were
// checked out, even if the cart changed since.
type SnapshotItem struct {
	CartItemID  uuid.UUID `json:"cart_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Size        string    `json:"size,omitempty"`
	Color       string    `json:"color,omitempty"`
}

// CartSnapshot is the source of truth for order-item creation on the online
// payment path. It is cleared once consumed.
type CartSnapshot struct {
	CartID      uuid.UUID      `json:"cart_id"`
	Items       []SnapshotItem `json:"items"`
	TotalAmount float64        `json:"total_amount"`
	Currency    string         `json:"currency"`
	CapturedAt  time.Time      `json:"captured_at"`
}

// CartItemIDs lists the snapshotted cart line ids, in snapshot order.
func (s *CartSnapshot) CartItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.CartItemID
	}
	return ids
}

// Covers reports whether the snapshot describes the same cart lines as items:
// same line ids with the same quantities. Used to detect a duplicate checkout
// submission for an unchanged cart.
func (s *CartSnapshot) Covers(items []PricedCartItem) bool {
	if len(s.Items) != len(items) {
		return false
	}
	byID := make(map[uuid.UUID]int, len(s.Items))
	for _, it := range s.Items {
		byID[it.CartItemID] = it.Quantity
	}
	for _, it := range items {
		if qty, ok := byID[it.ID]; !ok || qty != it.Quantity {
			return false
		}
	}
	return true
}

// OrderEvent is a transactional-outbox row: written in the same transaction as
// the order state change it reports, published to the bus by a poller.
type OrderEvent struct {
	ID        int64
	OrderID   uuid.UUID
	EventType string
	Payload   []byte
	Processed bool
	CreatedAt time.Time
}

const (
	OrderEventConfirmed = "order.confirmed"
	OrderEventPaid      = "order.paid"
	OrderEventCancelled = "order.cancelled"
)
