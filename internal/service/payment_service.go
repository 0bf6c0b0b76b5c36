package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/gateway"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

// PaymentRepo is the slice of the store payment verification needs.
type PaymentRepo interface {
	repository.PaymentStore
	repository.OrderStore
}

type PaymentService struct {
	repo      PaymentRepo
	carts     *CartService
	gateway   gateway.Client
	keySecret string
}

func NewPaymentService(repo PaymentRepo, carts *CartService, gw gateway.Client, keySecret string) *PaymentService {
	return &PaymentService{
		repo:      repo,
		carts:     carts,
		gateway:   gw,
		keySecret: keySecret,
	}
}

type VerifyRequest struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	Signature         string
}

type VerifyResult struct {
	OrderID         uuid.UUID
	AlreadyVerified bool
}

// Verify validates the signed gateway callback against the stored payment
// record and finalizes the order. Callers may retry or double-submit; a
// payment captures at most once and every later call is a no-op success.
func (s *PaymentService) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	payment, err := s.repo.GetPaymentByRazorpayOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusCaptured {
		return &VerifyResult{OrderID: payment.OrderID, AlreadyVerified: true}, nil
	}

	if !gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.Signature, s.keySecret) {
		if _, markErr := s.repo.MarkPaymentFailed(ctx, payment.ID, domain.FailureReasonSignatureMismatch); markErr != nil {
			log.Printf("failed to mark payment %s failed: %v", payment.ID, markErr)
		}
		return nil, ErrInvalidSignature
	}

	// Best effort: record which method the customer actually paid with.
	method := ""
	if details, fetchErr := s.gateway.FetchPayment(ctx, req.RazorpayPaymentID); fetchErr == nil {
		method = details.Method
	} else {
		log.Printf("payment details fetch failed for %s: %v", req.RazorpayPaymentID, fetchErr)
	}

	advanced, err := s.repo.CapturePayment(ctx, payment.ID, req.RazorpayPaymentID, req.Signature, method)
	if err != nil {
		return nil, fmt.Errorf("capture payment: %w", err)
	}
	if !advanced {
		// A concurrent handler (webhook) moved the payment first. Converge on
		// whatever it decided.
		current, readErr := s.repo.GetPaymentByRazorpayOrderID(ctx, req.RazorpayOrderID)
		if readErr != nil {
			return nil, readErr
		}
		if current.Status != domain.PaymentStatusCaptured {
			return nil, ErrPaymentUnverifiable
		}
	}

	if err := s.finalize(ctx, payment.OrderID); err != nil {
		return nil, err
	}

	return &VerifyResult{OrderID: payment.OrderID}, nil
}

// finalize consumes the order's snapshot into order items. Safe to call from
// both the verify endpoint and the webhook processor: the second caller sees
// the snapshot already cleared and backs off.
func (s *PaymentService) finalize(ctx context.Context, orderID uuid.UUID) error {
	err := s.repo.FinalizeOrder(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrAlreadyFinalized) {
		return fmt.Errorf("finalize order %s: %w", orderID, err)
	}

	// The snapshotted cart lines are gone; drop the stale cached cart.
	if order, readErr := s.repo.GetOrderByID(ctx, orderID); readErr == nil {
		s.carts.invalidate(identity.Owner{UserID: order.UserID, GuestID: order.GuestID})
	} else {
		log.Printf("order read after finalization failed for %s: %v", orderID, readErr)
	}
	return nil
}
