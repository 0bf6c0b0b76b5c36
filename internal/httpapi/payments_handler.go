package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/soulax-ranjan/ani-ayu-api/internal/service"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type PaymentsHandler struct {
	payments *service.PaymentService
	webhooks *service.WebhookService
}

func NewPaymentsHandler(payments *service.PaymentService, webhooks *service.WebhookService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, webhooks: webhooks}
}

type verifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (h *PaymentsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	result, err := h.payments.Verify(r.Context(), &service.VerifyRequest{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		Signature:         req.RazorpaySignature,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "verified",
		"orderId":         result.OrderID.String(),
		"alreadyVerified": result.AlreadyVerified,
	})
}

// Webhook receives gateway events. The signature covers the exact raw body,
// so it must be read before any JSON decoding touches it.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}
	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" {
		respondError(w, http.StatusBadRequest, "missing_signature", "X-Razorpay-Signature header is required")
		return
	}

	if err := h.webhooks.Process(r.Context(), body, signature); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
