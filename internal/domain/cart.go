package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is owned by exactly one of user id / guest id. It is created lazily on
// the first add-to-cart and emptied once its items are consumed into an order.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	GuestID   *string    `json:"guest_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one line in a cart. Uniqueness key is (cart, product, size, color);
// adding an existing combination increments quantity instead of duplicating.
type CartItem struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// PricedCartItem joins a cart line to the current catalog price. The cart itself
// never stores a price; only checkout snapshots freeze one.
type PricedCartItem struct {
	CartItem
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
}

type PricedCart struct {
	Cart
	Items       []PricedCartItem `json:"items"`
	TotalItems  int              `json:"total_items"`
	TotalAmount float64          `json:"total_amount"`
}
