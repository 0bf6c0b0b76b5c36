package repository

import (
	"context"
	"fmt"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
)

func (r *Repository) GetUnprocessedOrderEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	query := `SELECT id, order_id, event_type, payload, processed, created_at
	          FROM order_events WHERE NOT processed ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed order events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OrderEvent
	for rows.Next() {
		var event domain.OrderEvent
		if err := rows.Scan(
			&event.ID,
			&event.OrderID,
			&event.EventType,
			&event.Payload,
			&event.Processed,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order event row: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkOrderEventProcessed(ctx context.Context, eventID int64) error {
	query := `UPDATE order_events SET processed = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("mark order event processed: %w", err)
	}
	return nil
}
