package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

const testKeySecret = "test_key_secret"

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type paymentFixture struct {
	store    *mockStore
	cache    *mockCache
	gateway  *mockGateway
	payments *PaymentService

	owner           identity.Owner
	orderID         uuid.UUID
	paymentID       uuid.UUID
	razorpayOrderID string
}

// newPaymentFixture seeds an order awaiting payment the way a card checkout
// leaves it: pending order holding a snapshot, pending payment, intact cart.
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	store := newMockStore()
	cc := newMockCache()
	gw := &mockGateway{}
	carts := NewCartService(store, cc)
	checkout := NewCheckoutService(store, carts, gw, "rzp_test_key")

	guestID := "guest-1"
	owner := identity.Owner{GuestID: &guestID}
	productID := seedProduct(store, "Linen Kurta", 1000)
	require.NoError(t, carts.AddItem(context.Background(), owner, productID, 1, "M", "white"))

	addressID := uuid.New()
	store.addresses[addressID] = &domain.Address{ID: addressID, GuestID: &guestID, Email: "guest@example.com"}

	result, err := checkout.Checkout(context.Background(), owner, &CheckoutRequest{
		AddressID:     addressID,
		PaymentMethod: domain.PaymentMethodCard,
	})
	require.NoError(t, err)

	payment, err := store.GetPaymentByRazorpayOrderID(context.Background(), result.RazorpayOrderID)
	require.NoError(t, err)

	return &paymentFixture{
		store:           store,
		cache:           cc,
		gateway:         gw,
		payments:        NewPaymentService(store, carts, gw, testKeySecret),
		owner:           owner,
		orderID:         result.OrderID,
		paymentID:       payment.ID,
		razorpayOrderID: result.RazorpayOrderID,
	}
}

func TestVerifyValidSignatureFinalizesOrder(t *testing.T) {
	f := newPaymentFixture(t)
	rpPaymentID := "pay_123"

	result, err := f.payments.Verify(context.Background(), &VerifyRequest{
		RazorpayOrderID:   f.razorpayOrderID,
		RazorpayPaymentID: rpPaymentID,
		Signature:         signPayment(f.razorpayOrderID, rpPaymentID),
	})
	require.NoError(t, err)
	assert.Equal(t, f.orderID, result.OrderID)
	assert.False(t, result.AlreadyVerified)

	payment := f.store.payment(f.paymentID)
	assert.Equal(t, domain.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, rpPaymentID, payment.RazorpayPaymentID)
	assert.Equal(t, "card", payment.Method, "method recorded from the gateway fetch")

	order := f.store.order(f.orderID)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, domain.OrderPaymentPaid, order.PaymentStatus)
	assert.Nil(t, order.CartSnapshot)
	require.Len(t, order.Items, 1)
	assert.Equal(t, float64(1000), order.Items[0].PriceAtPurchase)

	// The snapshotted cart line is consumed exactly now.
	cart, errCart := f.store.GetCartByOwner(context.Background(), f.owner)
	require.NoError(t, errCart)
	items, errItems := f.store.GetCartItemsWithPrices(context.Background(), cart.ID, nil)
	require.NoError(t, errItems)
	assert.Empty(t, items)

	assert.Equal(t, []string{domain.OrderEventPaid}, f.store.eventTypes())
}

func TestVerifyTwiceIsNoOpSuccess(t *testing.T) {
	f := newPaymentFixture(t)
	rpPaymentID := "pay_123"
	req := &VerifyRequest{
		RazorpayOrderID:   f.razorpayOrderID,
		RazorpayPaymentID: rpPaymentID,
		Signature:         signPayment(f.razorpayOrderID, rpPaymentID),
	}

	_, err := f.payments.Verify(context.Background(), req)
	require.NoError(t, err)

	result, err := f.payments.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.AlreadyVerified)
	assert.Equal(t, f.orderID, result.OrderID)

	// No duplicate order items and no second paid event.
	order := f.store.order(f.orderID)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, []string{domain.OrderEventPaid}, f.store.eventTypes())
}

func TestVerifyBadSignatureMarksPaymentFailed(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.payments.Verify(context.Background(), &VerifyRequest{
		RazorpayOrderID:   f.razorpayOrderID,
		RazorpayPaymentID: "pay_123",
		Signature:         "deadbeef",
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	payment := f.store.payment(f.paymentID)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	assert.Equal(t, domain.FailureReasonSignatureMismatch, payment.FailureReason)

	// The order is untouched: still pending, snapshot intact.
	order := f.store.order(f.orderID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.NotNil(t, order.CartSnapshot)
	assert.Empty(t, order.Items)
}

func TestVerifyAfterFailureIsUnverifiable(t *testing.T) {
	f := newPaymentFixture(t)
	rpPaymentID := "pay_123"

	// A webhook already failed the payment; the lattice never regresses.
	advanced, err := f.store.MarkPaymentFailed(context.Background(), f.paymentID, "card declined")
	require.NoError(t, err)
	require.True(t, advanced)

	_, err = f.payments.Verify(context.Background(), &VerifyRequest{
		RazorpayOrderID:   f.razorpayOrderID,
		RazorpayPaymentID: rpPaymentID,
		Signature:         signPayment(f.razorpayOrderID, rpPaymentID),
	})
	assert.ErrorIs(t, err, ErrPaymentUnverifiable)

	payment := f.store.payment(f.paymentID)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
}

func TestVerifyUnknownGatewayOrder(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.payments.Verify(context.Background(), &VerifyRequest{
		RazorpayOrderID:   "order_unknown",
		RazorpayPaymentID: "pay_123",
		Signature:         signPayment("order_unknown", "pay_123"),
	})
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
}

func TestVerifySurvivesGatewayFetchFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.fetchErr = assert.AnError
	rpPaymentID := "pay_123"

	result, err := f.payments.Verify(context.Background(), &VerifyRequest{
		RazorpayOrderID:   f.razorpayOrderID,
		RazorpayPaymentID: rpPaymentID,
		Signature:         signPayment(f.razorpayOrderID, rpPaymentID),
	})
	require.NoError(t, err, "the method fetch is best effort")
	assert.Equal(t, f.orderID, result.OrderID)

	payment := f.store.payment(f.paymentID)
	assert.Equal(t, domain.PaymentStatusCaptured, payment.Status)
	assert.Empty(t, payment.Method)
}
