package publisher

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

// messageWriter is what the poller needs from kafka.Writer; narrowed for
// testability.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains order_events rows written transactionally alongside
// order state changes and publishes them to the order-events topic. Publishing
// is at-least-once: a crash between publish and mark re-sends the event.
type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	repo      repository.OutboxStore
	writer    messageWriter
}

func NewOutboxPoller(repo repository.OutboxStore, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		repo:      repo,
		writer:    w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if closer, ok := p.writer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("error closing kafka writer: %v", err)
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedOrderEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch order events: %v", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			log.Printf("failed to publish order event id=%d: %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkOrderEventProcessed(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark order event processed id=%d: %v", event.ID, errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OrderEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()), // order id for partition ordering
		Value: event.Payload,                  // already JSON from the outbox row
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
