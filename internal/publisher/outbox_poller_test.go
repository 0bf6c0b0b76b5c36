package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
)

type mockOutbox struct {
	m         sync.Mutex
	events    []*domain.OrderEvent
	processed map[int64]bool
	fetchErr  error
	markErr   error
}

func newMockOutbox(events ...*domain.OrderEvent) *mockOutbox {
	return &mockOutbox{events: events, processed: make(map[int64]bool)}
}

func (o *mockOutbox) GetUnprocessedOrderEvents(_ context.Context, limit int) ([]*domain.OrderEvent, error) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.fetchErr != nil {
		return nil, o.fetchErr
	}
	var out []*domain.OrderEvent
	for _, e := range o.events {
		if !o.processed[e.ID] {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (o *mockOutbox) MarkOrderEventProcessed(_ context.Context, eventID int64) error {
	o.m.Lock()
	defer o.m.Unlock()
	if o.markErr != nil {
		return o.markErr
	}
	o.processed[eventID] = true
	return nil
}

type mockWriter struct {
	m        sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func testPoller(repo *mockOutbox, writer *mockWriter) *OutboxPoller {
	return &OutboxPoller{
		tick:      time.Millisecond,
		batchSize: 100,
		repo:      repo,
		writer:    writer,
	}
}

func orderEvent(id int64, eventType string) *domain.OrderEvent {
	return &domain.OrderEvent{
		ID:        id,
		OrderID:   uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{"total_amount":1000}`),
	}
}

func TestProcessUnpublishedEvents(t *testing.T) {
	confirmed := orderEvent(1, domain.OrderEventConfirmed)
	paid := orderEvent(2, domain.OrderEventPaid)
	repo := newMockOutbox(confirmed, paid)
	writer := &mockWriter{}

	testPoller(repo, writer).processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte(confirmed.OrderID.String()), writer.messages[0].Key)
	assert.Equal(t, confirmed.Payload, writer.messages[0].Value)
	require.Len(t, writer.messages[0].Headers, 1)
	assert.Equal(t, "event_type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, []byte(domain.OrderEventConfirmed), writer.messages[0].Headers[0].Value)

	assert.True(t, repo.processed[1])
	assert.True(t, repo.processed[2])
}

func TestFailedPublishLeavesEventUnprocessed(t *testing.T) {
	repo := newMockOutbox(orderEvent(1, domain.OrderEventConfirmed))
	writer := &mockWriter{err: errors.New("broker unreachable")}
	poller := testPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())
	assert.False(t, repo.processed[1])

	// The next tick retries and succeeds.
	writer.err = nil
	poller.processUnpublishedEvents(context.Background())
	assert.True(t, repo.processed[1])
	assert.Len(t, writer.messages, 1)
}

func TestFailedMarkCausesRepublish(t *testing.T) {
	repo := newMockOutbox(orderEvent(1, domain.OrderEventPaid))
	writer := &mockWriter{}
	poller := testPoller(repo, writer)

	repo.markErr = errors.New("db down")
	poller.processUnpublishedEvents(context.Background())

	repo.markErr = nil
	poller.processUnpublishedEvents(context.Background())

	// At-least-once: the event went out twice but ended up processed.
	assert.Len(t, writer.messages, 2)
	assert.True(t, repo.processed[1])
}

func TestFetchErrorIsRetriedNextTick(t *testing.T) {
	repo := newMockOutbox(orderEvent(1, domain.OrderEventConfirmed))
	repo.fetchErr = errors.New("db down")
	writer := &mockWriter{}
	poller := testPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())
	assert.Empty(t, writer.messages)

	repo.fetchErr = nil
	poller.processUnpublishedEvents(context.Background())
	assert.Len(t, writer.messages, 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := newMockOutbox(orderEvent(1, domain.OrderEventConfirmed))
	poller := testPoller(repo, &mockWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	// Let at least one tick fire, then stop.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
	assert.True(t, repo.processed[1])
}
