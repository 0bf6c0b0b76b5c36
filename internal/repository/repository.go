package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartExists       = errors.New("cart already exists for this owner")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAlreadyFinalized = errors.New("order has no snapshot to finalize")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type CartStore interface {
	GetCartByOwner(ctx context.Context, owner identity.Owner) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) error
	AddCartItem(ctx context.Context, item *domain.CartItem) error
	GetCartItemsWithPrices(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) ([]domain.PricedCartItem, error)
	UpdateCartItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, itemID uuid.UUID) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type ProductStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type AddressStore interface {
	CreateAddress(ctx context.Context, address *domain.Address) error
	ListAddresses(ctx context.Context, owner identity.Owner) ([]domain.Address, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*domain.Address, error)
}

type OrderStore interface {
	// CreateOrderCOD materializes order items from live cart lines, deletes
	// the consumed lines and records the outbox event, all in one transaction.
	CreateOrderCOD(ctx context.Context, order *domain.Order, items []domain.OrderItem, consumedCartItemIDs []uuid.UUID) error
	// CreateOrderAwaitingPayment persists a pending order carrying its cart
	// snapshot; cart lines are left untouched.
	CreateOrderAwaitingPayment(ctx context.Context, order *domain.Order) error
	// FindAwaitingPaymentOrder returns the newest pending online order for an
	// owner that still holds a snapshot, with its payment record.
	FindAwaitingPaymentOrder(ctx context.Context, owner identity.Owner) (*domain.Order, *domain.Payment, error)
	// FinalizeOrder consumes the order's snapshot in one transaction: order
	// items inserted, snapshotted cart lines deleted, order confirmed/paid,
	// snapshot cleared, outbox event written. Returns ErrAlreadyFinalized if
	// the snapshot is already gone.
	FinalizeOrder(ctx context.Context, orderID uuid.UUID) error
	// CancelOrderPaymentFailed moves a still-pending order to
	// cancelled/failed; a no-op if the order already left pending.
	CancelOrderPaymentFailed(ctx context.Context, orderID uuid.UUID) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, owner identity.Owner) ([]*domain.Order, error)
	GetOrderForTracking(ctx context.Context, id uuid.UUID, email string) (*domain.Order, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	GetPaymentByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*domain.Payment, error)
	// MarkPaymentAuthorized / CapturePayment / MarkPaymentFailed advance the
	// payment along the monotonic lattice via conditional updates; they report
	// whether this call advanced the state (false means a concurrent handler
	// got there first, or the transition is illegal from the current status).
	MarkPaymentAuthorized(ctx context.Context, paymentID uuid.UUID) (bool, error)
	CapturePayment(ctx context.Context, paymentID uuid.UUID, razorpayPaymentID, signature, method string) (bool, error)
	MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) (bool, error)
}

type OutboxStore interface {
	GetUnprocessedOrderEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error)
	MarkOrderEventProcessed(ctx context.Context, eventID int64) error
}

// Store is the full postgres surface; *Repository implements it.
type Store interface {
	CartStore
	ProductStore
	AddressStore
	OrderStore
	PaymentStore
	OutboxStore
	RunMigrations(*Credentials) error
	Close() error
}
