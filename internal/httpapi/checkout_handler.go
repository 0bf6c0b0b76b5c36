package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	AddressID     string   `json:"addressId"`
	PaymentMethod string   `json:"paymentMethod"`
	CartItemIDs   []string `json:"cartItemIds,omitempty"`
}

type checkoutResponse struct {
	OrderID         string `json:"orderId"`
	RequiresPayment bool   `json:"requiresPayment"`
	RazorpayOrderID string `json:"razorpayOrderId,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Key             string `json:"key,omitempty"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.FromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_address", "addressId must be a uuid")
		return
	}

	itemIDs := make([]uuid.UUID, 0, len(req.CartItemIDs))
	for _, raw := range req.CartItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_item_id", "cartItemIds must be uuids")
			return
		}
		itemIDs = append(itemIDs, id)
	}

	result, err := h.checkout.Checkout(r.Context(), owner, &service.CheckoutRequest{
		AddressID:     addressID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CartItemIDs:   itemIDs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:         result.OrderID.String(),
		RequiresPayment: result.RequiresPayment,
		RazorpayOrderID: result.RazorpayOrderID,
		Amount:          result.Amount,
		Currency:        result.Currency,
		Key:             result.Key,
	})
}
