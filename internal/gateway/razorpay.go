package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/sony/gobreaker/v2"
)

// Client is the payment-gateway surface checkout and verification need:
// create an order for an amount in minor units, and fetch a payment after the
// customer has paid.
type Client interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
}

type PaymentDetails struct {
	ID     string
	Method string
	Status string
}

// RazorpayClient wraps the Razorpay SDK behind a circuit breaker so a
// misbehaving gateway sheds load fast instead of piling up checkout requests.
type RazorpayClient struct {
	api *razorpay.Client
	cb  *gobreaker.CircuitBreaker[map[string]interface{}]
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		api: razorpay.NewClient(keyID, keySecret),
		cb: gobreaker.NewCircuitBreaker[map[string]interface{}](gobreaker.Settings{
			Name: "razorpay",
		}),
	}
}

func (c *RazorpayClient) CreateOrder(_ context.Context, amountPaise int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := c.cb.Execute(func() (map[string]interface{}, error) {
		return c.api.Order.Create(data, nil)
	})
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay order create: response has no order id")
	}
	return orderID, nil
}

func (c *RazorpayClient) FetchPayment(_ context.Context, paymentID string) (*PaymentDetails, error) {
	body, err := c.cb.Execute(func() (map[string]interface{}, error) {
		return c.api.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay payment fetch: %w", err)
	}

	details := &PaymentDetails{ID: paymentID}
	if method, ok := body["method"].(string); ok {
		details.Method = method
	}
	if status, ok := body["status"].(string); ok {
		details.Status = status
	}
	return details, nil
}
