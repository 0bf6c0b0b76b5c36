package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// CanTransitionTo encodes the monotonic payment lattice: pending -> authorized
// -> captured, or pending/authorized -> failed. Handlers may advance a payment
// but never regress it, so the synchronous verifier and the webhook processor
// converge regardless of ordering.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch next {
	case PaymentStatusAuthorized:
		return s == PaymentStatusPending
	case PaymentStatusCaptured:
		return s == PaymentStatusPending || s == PaymentStatusAuthorized
	case PaymentStatusFailed:
		return s == PaymentStatusPending || s == PaymentStatusAuthorized
	default:
		return false
	}
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCaptured || s == PaymentStatusFailed
}

// Payment is the gateway-side record for an online order. RazorpayPaymentID is
// assigned only after the customer pays. A payment transitions to captured at
// most once; re-verifying a captured payment is a no-op success.
type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
	Amount            float64
	Currency          string
	Method            string
	Status            PaymentStatus
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const FailureReasonSignatureMismatch = "SIGNATURE_MISMATCH"
