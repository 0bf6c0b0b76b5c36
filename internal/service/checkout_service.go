package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/gateway"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

const orderCurrency = "INR"

// CheckoutRepo is the slice of the store checkout needs.
type CheckoutRepo interface {
	repository.CartStore
	repository.AddressStore
	repository.OrderStore
	repository.PaymentStore
}

type CheckoutService struct {
	repo    CheckoutRepo
	carts   *CartService
	gateway gateway.Client
	keyID   string // Razorpay key id, echoed to the client for its SDK
}

func NewCheckoutService(repo CheckoutRepo, carts *CartService, gw gateway.Client, keyID string) *CheckoutService {
	return &CheckoutService{
		repo:    repo,
		carts:   carts,
		gateway: gw,
		keyID:   keyID,
	}
}

type CheckoutRequest struct {
	AddressID     uuid.UUID
	PaymentMethod domain.PaymentMethod
	CartItemIDs   []uuid.UUID // optional subset of cart lines to check out
}

type CheckoutResult struct {
	OrderID         uuid.UUID
	RequiresPayment bool
	RazorpayOrderID string
	Amount          int64 // minor units (paise)
	Currency        string
	Key             string
}

// Checkout runs the orchestration: resolve cart, freeze prices, validate the
// address, then either finalize immediately (cash on delivery) or park the
// order behind a gateway payment. The total is always recomputed from live
// catalog prices; nothing client-supplied is trusted.
func (s *CheckoutService) Checkout(ctx context.Context, owner identity.Owner, req *CheckoutRequest) (*CheckoutResult, error) {
	switch req.PaymentMethod {
	case domain.PaymentMethodCOD, domain.PaymentMethodCard, domain.PaymentMethodUPI:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	cart, err := s.repo.GetCartByOwner(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("resolve cart: %w", err)
	}

	items, err := s.repo.GetCartItemsWithPrices(ctx, cart.ID, req.CartItemIDs)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var totalAmount float64
	for _, item := range items {
		totalAmount += item.Price * float64(item.Quantity)
	}

	address, err := s.repo.GetAddress(ctx, req.AddressID)
	if errors.Is(err, repository.ErrAddressNotFound) {
		return nil, ErrInvalidAddress
	}
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}

	// Guest orders are trackable by contact email; an authenticated email
	// wins over the one stored on the address.
	contactEmail := owner.Email
	if contactEmail == "" {
		contactEmail = address.Email
	}

	if !req.PaymentMethod.Online() {
		return s.checkoutCOD(ctx, owner, cart, items, address, contactEmail, totalAmount)
	}
	return s.checkoutOnline(ctx, owner, cart, items, address, contactEmail, totalAmount)
}

func (s *CheckoutService) checkoutCOD(ctx context.Context, owner identity.Owner, cart *domain.Cart, items []domain.PricedCartItem, address *domain.Address, contactEmail string, totalAmount float64) (*CheckoutResult, error) {
	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        owner.UserID,
		GuestID:       guestIDFor(owner),
		GuestEmail:    contactEmail,
		AddressID:     address.ID,
		TotalAmount:   totalAmount,
		Status:        domain.OrderStatusConfirmed,
		PaymentStatus: domain.OrderPaymentPending, // settled on delivery
	}

	orderItems := make([]domain.OrderItem, len(items))
	consumed := make([]uuid.UUID, len(items))
	for i, item := range items {
		orderItems[i] = domain.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.Price,
			Size:            item.Size,
			Color:           item.Color,
		}
		consumed[i] = item.ID
	}

	if err := s.repo.CreateOrderCOD(ctx, order, orderItems, consumed); err != nil {
		return nil, fmt.Errorf("create COD order: %w", err)
	}

	s.carts.invalidate(owner)
	return &CheckoutResult{OrderID: order.ID}, nil
}

func (s *CheckoutService) checkoutOnline(ctx context.Context, owner identity.Owner, cart *domain.Cart, items []domain.PricedCartItem, address *domain.Address, contactEmail string, totalAmount float64) (*CheckoutResult, error) {
	// Duplicate-submission guard: an unchanged cart with an order already
	// awaiting payment gets the stored gateway order back instead of a second
	// gateway order.
	if existing, payment, err := s.repo.FindAwaitingPaymentOrder(ctx, owner); err == nil {
		if existing.CartSnapshot != nil && existing.CartSnapshot.Covers(items) {
			log.Printf("duplicate checkout for order %s, returning existing gateway order %s",
				existing.ID, payment.RazorpayOrderID)
			return &CheckoutResult{
				OrderID:         existing.ID,
				RequiresPayment: true,
				RazorpayOrderID: payment.RazorpayOrderID,
				Amount:          toMinorUnits(payment.Amount),
				Currency:        payment.Currency,
				Key:             s.keyID,
			}, nil
		}
	} else if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("check pending orders: %w", err)
	}

	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        owner.UserID,
		GuestID:       guestIDFor(owner),
		GuestEmail:    contactEmail,
		AddressID:     address.ID,
		TotalAmount:   totalAmount,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.OrderPaymentPending,
		CartSnapshot:  buildCartSnapshot(cart.ID, items, orderCurrency),
	}

	// Cart lines stay untouched until payment is verified; the snapshot alone
	// carries what was bought and at which price.
	if err := s.repo.CreateOrderAwaitingPayment(ctx, order); err != nil {
		return nil, fmt.Errorf("create pending order: %w", err)
	}

	amountPaise := toMinorUnits(totalAmount)
	razorpayOrderID, err := s.gateway.CreateOrder(ctx, amountPaise, orderCurrency, order.ID.String())
	if err != nil {
		// Order stays pending with no payment record: not finalizable, swept
		// later. The caller sees an upstream failure.
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	payment := &domain.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		RazorpayOrderID: razorpayOrderID,
		Amount:          totalAmount,
		Currency:        orderCurrency,
		Status:          domain.PaymentStatusPending,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		// Gateway order exists but the payment record does not; the callback
		// for it can never verify. Flag for manual reconciliation.
		log.Printf("CRITICAL: payment record insert failed for order %s (gateway order %s): %v",
			order.ID, razorpayOrderID, err)
		return nil, fmt.Errorf("persist payment record: %w", err)
	}

	return &CheckoutResult{
		OrderID:         order.ID,
		RequiresPayment: true,
		RazorpayOrderID: razorpayOrderID,
		Amount:          amountPaise,
		Currency:        orderCurrency,
		Key:             s.keyID,
	}, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// guestIDFor mirrors the owner rule onto orders: an authenticated order never
// records a guest id, even if the request carried one.
func guestIDFor(owner identity.Owner) *string {
	if owner.UserID != nil {
		return nil
	}
	return owner.GuestID
}
