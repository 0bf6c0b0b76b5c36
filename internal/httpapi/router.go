package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
)

type Handlers struct {
	Cart      *CartHandler
	Checkout  *CheckoutHandler
	Payments  *PaymentsHandler
	Orders    *OrdersHandler
	Addresses *AddressesHandler
}

// NewRouter assembles the public API. The identity middleware runs on every
// route so anonymous visitors always leave with a guest cookie; the webhook
// route is mounted outside it because the gateway carries no session.
func NewRouter(resolver *identity.Resolver, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/webhook", h.Payments.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(resolver.Middleware)

			r.Route("/cart", h.Cart.Routes)
			r.Post("/checkout", h.Checkout.Checkout)
			r.Post("/payments/verify", h.Payments.Verify)
			r.Route("/orders", h.Orders.Routes)
			r.Route("/addresses", h.Addresses.Routes)
		})
	})

	return r
}
