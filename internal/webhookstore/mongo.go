package webhookstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
)

var ErrEventNotFound = errors.New("webhook event not found")

// EventStore is the append-only audit log for inbound gateway events. Events
// are written whether or not their signature verified; only the processed
// flag is ever mutated afterwards.
type EventStore interface {
	Insert(ctx context.Context, event *domain.WebhookEvent) (string, error)
	MarkProcessed(ctx context.Context, id string) error
	ListUnprocessed(ctx context.Context, limit int64) ([]domain.WebhookEvent, error)
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) EventStore {
	return &mongoStore{
		collection: db.Collection("webhook_events"),
	}
}

func (m *mongoStore) Insert(ctx context.Context, event *domain.WebhookEvent) (string, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	doc := bson.M{
		"event_type":  event.EventType,
		"payload":     event.Payload,
		"signature":   event.Signature,
		"verified":    event.Verified,
		"processed":   event.Processed,
		"received_at": event.ReceivedAt,
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert webhook event: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoStore) MarkProcessed(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", id, err)
	}

	filter := bson.M{"_id": oid}
	update := bson.M{"$set": bson.M{"processed": true}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ListUnprocessed supports manual reconciliation of events whose dispatch
// failed after persistence.
func (m *mongoStore) ListUnprocessed(ctx context.Context, limit int64) ([]domain.WebhookEvent, error) {
	filter := bson.M{"processed": false, "verified": true}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []domain.WebhookEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode webhook events: %w", err)
	}
	return events, nil
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
