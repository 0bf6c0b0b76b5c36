package domain

import "time"

// Gateway webhook event types this backend reacts to.
const (
	WebhookPaymentAuthorized = "payment.authorized"
	WebhookPaymentCaptured   = "payment.captured"
	WebhookPaymentFailed     = "payment.failed"
	WebhookOrderPaid         = "order.paid"
)

// WebhookEvent is an append-only audit row for every inbound gateway event,
// stored with its raw payload whether or not the signature checked out. Only
// the processed flag is ever mutated.
type WebhookEvent struct {
	ID         string    `bson:"_id,omitempty"`
	EventType  string    `bson:"event_type"`
	Payload    []byte    `bson:"payload"`
	Signature  string    `bson:"signature"`
	Verified   bool      `bson:"verified"`
	Processed  bool      `bson:"processed"`
	ReceivedAt time.Time `bson:"received_at"`
}
