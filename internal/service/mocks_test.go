package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/cache"
	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/gateway"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

// mockStore is an in-memory stand-in for the postgres repository. It enforces
// the same invariants the SQL layer does: one cart per owner, conditional
// payment transitions, single-consumption snapshots.
type mockStore struct {
	m sync.Mutex

	products  map[uuid.UUID]*domain.Product
	carts     map[uuid.UUID]*domain.Cart
	cartItems map[uuid.UUID]*domain.CartItem
	addresses map[uuid.UUID]*domain.Address
	orders    map[uuid.UUID]*domain.Order
	payments  map[uuid.UUID]*domain.Payment
	events    []*domain.OrderEvent

	err error // when set, every call fails with it
}

func newMockStore() *mockStore {
	return &mockStore{
		products:  make(map[uuid.UUID]*domain.Product),
		carts:     make(map[uuid.UUID]*domain.Cart),
		cartItems: make(map[uuid.UUID]*domain.CartItem),
		addresses: make(map[uuid.UUID]*domain.Address),
		orders:    make(map[uuid.UUID]*domain.Order),
		payments:  make(map[uuid.UUID]*domain.Payment),
	}
}

func (s *mockStore) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func ownerMatches(owner identity.Owner, userID *uuid.UUID, guestID *string) bool {
	if owner.UserID != nil {
		return userID != nil && *userID == *owner.UserID
	}
	if owner.GuestID != nil {
		return guestID != nil && *guestID == *owner.GuestID
	}
	return false
}

func (s *mockStore) GetCartByOwner(_ context.Context, owner identity.Owner) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.carts {
		if ownerMatches(owner, c.UserID, c.GuestID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (s *mockStore) CreateCart(_ context.Context, cart *domain.Cart) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, c := range s.carts {
		if ownerMatches(identity.Owner{UserID: cart.UserID, GuestID: cart.GuestID}, c.UserID, c.GuestID) {
			return repository.ErrCartExists
		}
	}
	cp := *cart
	s.carts[cart.ID] = &cp
	return nil
}

func (s *mockStore) AddCartItem(_ context.Context, item *domain.CartItem) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID &&
			existing.Size == item.Size && existing.Color == item.Color {
			existing.Quantity += item.Quantity
			return nil
		}
	}
	cp := *item
	s.cartItems[item.ID] = &cp
	return nil
}

func (s *mockStore) GetCartItemsWithPrices(_ context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) ([]domain.PricedCartItem, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var subset map[uuid.UUID]bool
	if len(itemIDs) > 0 {
		subset = make(map[uuid.UUID]bool, len(itemIDs))
		for _, id := range itemIDs {
			subset[id] = true
		}
	}
	var out []domain.PricedCartItem
	for _, item := range s.cartItems {
		if item.CartID != cartID {
			continue
		}
		if subset != nil && !subset[item.ID] {
			continue
		}
		product, ok := s.products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s missing from mock catalog", item.ProductID)
		}
		out = append(out, domain.PricedCartItem{
			CartItem:    *item,
			ProductName: product.Name,
			Price:       product.Price,
			Subtotal:    product.Price * float64(item.Quantity),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *mockStore) UpdateCartItemQuantity(_ context.Context, cartID, itemID uuid.UUID, quantity int) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	item, ok := s.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (s *mockStore) RemoveCartItem(_ context.Context, cartID, itemID uuid.UUID) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	item, ok := s.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return repository.ErrCartItemNotFound
	}
	delete(s.cartItems, itemID)
	return nil
}

func (s *mockStore) ClearCart(_ context.Context, cartID uuid.UUID) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	for id, item := range s.cartItems {
		if item.CartID == cartID {
			delete(s.cartItems, id)
		}
	}
	return nil
}

func (s *mockStore) CreateAddress(_ context.Context, address *domain.Address) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *address
	s.addresses[address.ID] = &cp
	return nil
}

func (s *mockStore) ListAddresses(_ context.Context, owner identity.Owner) ([]domain.Address, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Address
	for _, a := range s.addresses {
		if ownerMatches(owner, a.UserID, a.GuestID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *mockStore) GetAddress(_ context.Context, id uuid.UUID) (*domain.Address, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.addresses[id]
	if !ok {
		return nil, repository.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *mockStore) CreateOrderCOD(_ context.Context, order *domain.Order, items []domain.OrderItem, consumedCartItemIDs []uuid.UUID) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *order
	cp.Items = items
	s.orders[order.ID] = &cp
	for _, id := range consumedCartItemIDs {
		delete(s.cartItems, id)
	}
	s.appendEvent(order.ID, domain.OrderEventConfirmed)
	return nil
}

func (s *mockStore) CreateOrderAwaitingPayment(_ context.Context, order *domain.Order) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *mockStore) FindAwaitingPaymentOrder(_ context.Context, owner identity.Owner) (*domain.Order, *domain.Payment, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	var newest *domain.Order
	for _, o := range s.orders {
		if o.Status != domain.OrderStatusPending || o.CartSnapshot == nil {
			continue
		}
		if !ownerMatches(owner, o.UserID, o.GuestID) {
			continue
		}
		if newest == nil || o.CreatedAt.After(newest.CreatedAt) {
			newest = o
		}
	}
	if newest == nil {
		return nil, nil, repository.ErrOrderNotFound
	}
	for _, p := range s.payments {
		if p.OrderID == newest.ID && p.Status == domain.PaymentStatusPending {
			oc, pc := *newest, *p
			return &oc, &pc, nil
		}
	}
	return nil, nil, repository.ErrOrderNotFound
}

func (s *mockStore) FinalizeOrder(_ context.Context, orderID uuid.UUID) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	order, ok := s.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.CartSnapshot == nil {
		return repository.ErrAlreadyFinalized
	}
	snapshot := order.CartSnapshot
	items := make([]domain.OrderItem, len(snapshot.Items))
	for i, line := range snapshot.Items {
		items[i] = domain.OrderItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Price,
			Size:            line.Size,
			Color:           line.Color,
		}
		delete(s.cartItems, line.CartItemID)
	}
	order.Items = items
	order.CartSnapshot = nil
	order.Status = domain.OrderStatusConfirmed
	order.PaymentStatus = domain.OrderPaymentPaid
	s.appendEvent(orderID, domain.OrderEventPaid)
	return nil
}

func (s *mockStore) CancelOrderPaymentFailed(_ context.Context, orderID uuid.UUID) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	order, ok := s.orders[orderID]
	if !ok || order.Status != domain.OrderStatusPending {
		return nil
	}
	order.Status = domain.OrderStatusCancelled
	order.PaymentStatus = domain.OrderPaymentFailed
	s.appendEvent(orderID, domain.OrderEventCancelled)
	return nil
}

func (s *mockStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *mockStore) ListOrdersByOwner(_ context.Context, owner identity.Owner) ([]*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Order
	for _, o := range s.orders {
		if ownerMatches(owner, o.UserID, o.GuestID) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *mockStore) GetOrderForTracking(_ context.Context, id uuid.UUID, email string) (*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orders[id]
	if !ok || o.GuestEmail != email {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *mockStore) CreatePayment(_ context.Context, payment *domain.Payment) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *payment
	s.payments[payment.ID] = &cp
	return nil
}

func (s *mockStore) GetPaymentByRazorpayOrderID(_ context.Context, razorpayOrderID string) (*domain.Payment, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.payments {
		if p.RazorpayOrderID == razorpayOrderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (s *mockStore) MarkPaymentAuthorized(_ context.Context, paymentID uuid.UUID) (bool, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return false, s.err
	}
	p, ok := s.payments[paymentID]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if !p.Status.CanTransitionTo(domain.PaymentStatusAuthorized) {
		return false, nil
	}
	p.Status = domain.PaymentStatusAuthorized
	return true, nil
}

func (s *mockStore) CapturePayment(_ context.Context, paymentID uuid.UUID, razorpayPaymentID, signature, method string) (bool, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return false, s.err
	}
	p, ok := s.payments[paymentID]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if !p.Status.CanTransitionTo(domain.PaymentStatusCaptured) {
		return false, nil
	}
	p.Status = domain.PaymentStatusCaptured
	p.RazorpayPaymentID = razorpayPaymentID
	p.RazorpaySignature = signature
	p.Method = method
	return true, nil
}

func (s *mockStore) MarkPaymentFailed(_ context.Context, paymentID uuid.UUID, reason string) (bool, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return false, s.err
	}
	p, ok := s.payments[paymentID]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if !p.Status.CanTransitionTo(domain.PaymentStatusFailed) {
		return false, nil
	}
	p.Status = domain.PaymentStatusFailed
	p.FailureReason = reason
	return true, nil
}

// appendEvent must be called with s.m held.
func (s *mockStore) appendEvent(orderID uuid.UUID, eventType string) {
	s.events = append(s.events, &domain.OrderEvent{
		ID:        int64(len(s.events) + 1),
		OrderID:   orderID,
		EventType: eventType,
	})
}

func (s *mockStore) eventTypes() []string {
	s.m.Lock()
	defer s.m.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

func (s *mockStore) payment(id uuid.UUID) domain.Payment {
	s.m.Lock()
	defer s.m.Unlock()
	return *s.payments[id]
}

func (s *mockStore) order(id uuid.UUID) domain.Order {
	s.m.Lock()
	defer s.m.Unlock()
	return *s.orders[id]
}

// mockCache records cache traffic; Get always misses unless primed.
type mockCache struct {
	m       sync.Mutex
	data    map[string]*domain.PricedCart
	sets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]*domain.PricedCart)}
}

func (c *mockCache) Get(_ context.Context, ownerKey string) (*domain.PricedCart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if cart, ok := c.data[ownerKey]; ok {
		return cart, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *mockCache) Set(_ context.Context, ownerKey string, cart *domain.PricedCart) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.data[ownerKey] = cart
	c.sets++
	return nil
}

func (c *mockCache) Delete(_ context.Context, ownerKey string) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.data, ownerKey)
	c.deletes++
	return nil
}

// mockGateway issues deterministic gateway order ids and records calls.
type mockGateway struct {
	m            sync.Mutex
	createCalls  int
	createErr    error
	fetchErr     error
	fetchMethod  string
	lastAmount   int64
	lastCurrency string
}

func (g *mockGateway) CreateOrder(_ context.Context, amountPaise int64, currency, receipt string) (string, error) {
	g.m.Lock()
	defer g.m.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.createCalls++
	g.lastAmount = amountPaise
	g.lastCurrency = currency
	return fmt.Sprintf("order_rzp%03d", g.createCalls), nil
}

func (g *mockGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.PaymentDetails, error) {
	g.m.Lock()
	defer g.m.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	method := g.fetchMethod
	if method == "" {
		method = "card"
	}
	return &gateway.PaymentDetails{ID: paymentID, Method: method, Status: "captured"}, nil
}

// mockEventStore is an in-memory webhook audit log.
type mockEventStore struct {
	m      sync.Mutex
	events []*domain.WebhookEvent
}

func (s *mockEventStore) Insert(_ context.Context, event *domain.WebhookEvent) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	cp := *event
	cp.ID = fmt.Sprintf("evt%03d", len(s.events)+1)
	s.events = append(s.events, &cp)
	return cp.ID, nil
}

func (s *mockEventStore) MarkProcessed(_ context.Context, id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			e.Processed = true
			return nil
		}
	}
	return fmt.Errorf("event %s not found", id)
}

func (s *mockEventStore) ListUnprocessed(_ context.Context, limit int64) ([]domain.WebhookEvent, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var out []domain.WebhookEvent
	for _, e := range s.events {
		if !e.Processed {
			out = append(out, *e)
			if int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}
