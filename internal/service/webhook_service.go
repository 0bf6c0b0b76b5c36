package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/gateway"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
	"github.com/soulax-ranjan/ani-ayu-api/internal/webhookstore"
)

// WebhookService reconciles payment and order state against gateway-pushed
// lifecycle events, independently of the synchronous verify endpoint. Both
// paths advance the same monotonic payment lattice, so they converge on the
// same terminal state regardless of delivery order.
type WebhookService struct {
	repo          PaymentRepo
	payments      *PaymentService
	events        webhookstore.EventStore
	webhookSecret string
}

func NewWebhookService(repo PaymentRepo, payments *PaymentService, events webhookstore.EventStore, webhookSecret string) *WebhookService {
	return &WebhookService{
		repo:          repo,
		payments:      payments,
		events:        events,
		webhookSecret: webhookSecret,
	}
}

// webhookEnvelope is the slice of Razorpay's event body this backend reads.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Method           string `json:"method"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// Process verifies, persists, dispatches and marks one inbound event. The
// event row is written whether or not the signature verified; an unverified
// event is rejected without touching payment or order state.
func (s *WebhookService) Process(ctx context.Context, body []byte, signature string) error {
	verified := gateway.VerifyWebhookSignature(body, signature, s.webhookSecret)

	var envelope webhookEnvelope
	parseErr := json.Unmarshal(body, &envelope)

	eventID, err := s.events.Insert(ctx, &domain.WebhookEvent{
		EventType: envelope.Event,
		Payload:   body,
		Signature: signature,
		Verified:  verified,
	})
	if err != nil {
		return fmt.Errorf("persist webhook event: %w", err)
	}

	if !verified {
		log.Printf("webhook event %s rejected: signature mismatch", eventID)
		return ErrInvalidSignature
	}
	if parseErr != nil {
		// Signed but unparseable; keep it for audit and move on.
		log.Printf("webhook event %s has malformed body: %v", eventID, parseErr)
		return s.markProcessed(ctx, eventID)
	}

	if err := s.dispatch(ctx, &envelope); err != nil {
		// Leave the event unprocessed so gateway redelivery retries it.
		return fmt.Errorf("dispatch %s event: %w", envelope.Event, err)
	}

	return s.markProcessed(ctx, eventID)
}

func (s *WebhookService) dispatch(ctx context.Context, envelope *webhookEnvelope) error {
	gatewayOrderID := envelope.Payload.Payment.Entity.OrderID
	if envelope.Event == domain.WebhookOrderPaid && gatewayOrderID == "" {
		gatewayOrderID = envelope.Payload.Order.Entity.ID
	}

	payment, err := s.repo.GetPaymentByRazorpayOrderID(ctx, gatewayOrderID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		// Either a stale event or one for an order this backend never issued.
		log.Printf("webhook %s references unknown gateway order %q", envelope.Event, gatewayOrderID)
		return nil
	}
	if err != nil {
		return err
	}

	entity := envelope.Payload.Payment.Entity
	switch envelope.Event {
	case domain.WebhookPaymentAuthorized:
		advanced, err := s.repo.MarkPaymentAuthorized(ctx, payment.ID)
		if err != nil {
			return err
		}
		if !advanced {
			log.Printf("payment %s already past pending, authorized event ignored", payment.ID)
		}
		return nil

	case domain.WebhookPaymentCaptured, domain.WebhookOrderPaid:
		advanced, err := s.repo.CapturePayment(ctx, payment.ID, entity.ID, "", entity.Method)
		if err != nil {
			return err
		}
		if !advanced {
			log.Printf("payment %s already terminal, capture event converges", payment.ID)
		}
		// Finalization is idempotent; losing the capture race to the verify
		// endpoint still leaves this a safe call.
		return s.payments.finalize(ctx, payment.OrderID)

	case domain.WebhookPaymentFailed:
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "gateway reported failure"
		}
		advanced, err := s.repo.MarkPaymentFailed(ctx, payment.ID, reason)
		if err != nil {
			return err
		}
		if !advanced {
			log.Printf("payment %s already terminal, failed event ignored", payment.ID)
			return nil
		}
		return s.repo.CancelOrderPaymentFailed(ctx, payment.OrderID)

	default:
		log.Printf("unknown webhook event type %q, ignoring", envelope.Event)
		return nil
	}
}

func (s *WebhookService) markProcessed(ctx context.Context, eventID string) error {
	if err := s.events.MarkProcessed(ctx, eventID); err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
