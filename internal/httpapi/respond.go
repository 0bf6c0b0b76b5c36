package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
	"github.com/soulax-ranjan/ani-ayu-api/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps sentinel errors from the service and repository
// layers to stable HTTP codes. Anything unmapped is an upstream failure and
// stays a 500 without leaking internals.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing user or guest identity")
	case errors.Is(err, service.ErrNoActiveSession):
		respondError(w, http.StatusBadRequest, "no_session", "no session found")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, service.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "invalid_address", "invalid address")
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment method must be cod, card or upi")
	case errors.Is(err, service.ErrInvalidSignature):
		respondError(w, http.StatusBadRequest, "invalid_signature", "payment verification failed")
	case errors.Is(err, service.ErrPaymentUnverifiable):
		respondError(w, http.StatusConflict, "payment_conflict", "payment is already in a terminal state")
	case errors.Is(err, repository.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, "payment_not_found", "invalid razorpay order id")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, repository.ErrCartItemNotFound):
		respondError(w, http.StatusNotFound, "cart_item_not_found", "cart item not found")
	case errors.Is(err, repository.ErrAddressNotFound):
		respondError(w, http.StatusNotFound, "address_not_found", "address not found")
	case errors.Is(err, repository.ErrCartExists):
		respondError(w, http.StatusConflict, "conflict", "resource already exists")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
