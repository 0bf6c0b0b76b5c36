package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/service"
)

type OrdersHandler struct {
	orders *service.OrderService
}

func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

func (h *OrdersHandler) Routes(r chi.Router) {
	r.Get("/", h.listOrders)
	r.Get("/track", h.trackOrder)
	r.Get("/{orderID}", h.getOrder)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.FromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), owner)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.FromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a uuid")
		return
	}
	order, err := h.orders.GetOrder(r.Context(), owner, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// trackOrder is the public lookup: no session required, the pair of order id
// and contact email acts as the credential.
func (h *OrdersHandler) trackOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.URL.Query().Get("orderId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "orderId query parameter must be a uuid")
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email query parameter is required")
		return
	}
	order, err := h.orders.TrackOrder(r.Context(), orderID, email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
