package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
)

// CreateOrderCOD writes the order, its items, the cart line deletes and the
// outbox event as one atomic unit. Cash-on-delivery orders finalize at
// checkout time, so there is no snapshot and no payment record.
func (r *Repository) CreateOrderCOD(ctx context.Context, order *domain.Order, items []domain.OrderItem, consumedCartItemIDs []uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertOrder(ctx, tx, order, nil); err != nil {
			return err
		}
		if err := insertOrderItems(ctx, tx, order.ID, items); err != nil {
			return err
		}
		if err := deleteCartItems(ctx, tx, consumedCartItemIDs); err != nil {
			return err
		}
		return insertOrderEvent(ctx, tx, order, domain.OrderEventConfirmed)
	})
}

// CreateOrderAwaitingPayment persists a pending order with its snapshot. The
// cart lines stay in place until payment is verified.
func (r *Repository) CreateOrderAwaitingPayment(ctx context.Context, order *domain.Order) error {
	snapshotJSON, err := json.Marshal(order.CartSnapshot)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return insertOrder(ctx, tx, order, snapshotJSON)
	})
}

func (r *Repository) FindAwaitingPaymentOrder(ctx context.Context, owner identity.Owner) (*domain.Order, *domain.Payment, error) {
	ownerCond, ownerArg := "o.user_id = $1", interface{}(nil)
	if owner.UserID != nil {
		ownerArg = *owner.UserID
	} else {
		ownerCond = "o.guest_id = $1"
		ownerArg = *owner.GuestID
	}

	query := fmt.Sprintf(`SELECT o.id, o.user_id, o.guest_id, o.guest_email, o.address_id,
	                 o.total_amount, o.status, o.payment_status, o.cart_snapshot, o.created_at, o.updated_at,
	                 p.id, p.order_id, p.razorpay_order_id, p.razorpay_payment_id, p.razorpay_signature,
	                 p.amount, p.currency, p.method, p.status, p.failure_reason, p.created_at, p.updated_at
	          FROM orders o
	          JOIN payments p ON p.order_id = o.id
	          WHERE %s AND o.status = 'pending' AND o.cart_snapshot IS NOT NULL AND p.status = 'pending'
	          ORDER BY o.created_at DESC
	          LIMIT 1`, ownerCond)

	var (
		order        domain.Order
		payment      domain.Payment
		snapshotJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, ownerArg).Scan(
		&order.ID, &order.UserID, &order.GuestID, &order.GuestEmail, &order.AddressID,
		&order.TotalAmount, &order.Status, &order.PaymentStatus, &snapshotJSON, &order.CreatedAt, &order.UpdatedAt,
		&payment.ID, &payment.OrderID, &payment.RazorpayOrderID, &payment.RazorpayPaymentID, &payment.RazorpaySignature,
		&payment.Amount, &payment.Currency, &payment.Method, &payment.Status, &payment.FailureReason,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query awaiting-payment order: %w", err)
	}
	if err := json.Unmarshal(snapshotJSON, &order.CartSnapshot); err != nil {
		return nil, nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}
	return &order, &payment, nil
}

// FinalizeOrder consumes the snapshot: order items are created from the frozen
// entries, only the snapshotted cart lines are deleted, and the order moves to
// confirmed/paid with the snapshot cleared. The SELECT ... FOR UPDATE makes
// concurrent finalizations (verify endpoint vs webhook) serialize; the loser
// sees a NULL snapshot and backs off with ErrAlreadyFinalized.
func (r *Repository) FinalizeOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var snapshotJSON []byte
		row := tx.QueryRowContext(ctx,
			`SELECT cart_snapshot FROM orders WHERE id = $1 FOR UPDATE`, orderID)
		if err := row.Scan(&snapshotJSON); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order for finalization: %w", err)
		}
		if snapshotJSON == nil {
			return ErrAlreadyFinalized
		}

		var snapshot domain.CartSnapshot
		if err := json.Unmarshal(snapshotJSON, &snapshot); err != nil {
			return fmt.Errorf("unmarshal cart snapshot: %w", err)
		}

		items := make([]domain.OrderItem, len(snapshot.Items))
		for i, entry := range snapshot.Items {
			items[i] = domain.OrderItem{
				ID:              uuid.New(),
				OrderID:         orderID,
				ProductID:       entry.ProductID,
				ProductName:     entry.ProductName,
				Quantity:        entry.Quantity,
				PriceAtPurchase: entry.Price,
				Size:            entry.Size,
				Color:           entry.Color,
			}
		}
		if err := insertOrderItems(ctx, tx, orderID, items); err != nil {
			return err
		}

		// Delete by the snapshotted ids, never by re-querying the live cart.
		if err := deleteCartItems(ctx, tx, snapshot.CartItemIDs()); err != nil {
			return err
		}

		update := `UPDATE orders
		           SET status = 'confirmed', payment_status = 'paid', cart_snapshot = NULL, updated_at = NOW()
		           WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, orderID); err != nil {
			return fmt.Errorf("confirm order: %w", err)
		}

		order := &domain.Order{ID: orderID, TotalAmount: snapshot.TotalAmount}
		return insertOrderEvent(ctx, tx, order, domain.OrderEventPaid)
	})
}

// CancelOrderPaymentFailed moves a pending order to cancelled/failed. The
// status guard keeps a late failure webhook from regressing an order that was
// already confirmed.
func (r *Repository) CancelOrderPaymentFailed(ctx context.Context, orderID uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		update := `UPDATE orders
		           SET status = 'cancelled', payment_status = 'failed', updated_at = NOW()
		           WHERE id = $1 AND status = 'pending'`
		res, err := tx.ExecContext(ctx, update, orderID)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil // already past pending, nothing to cancel
		}
		order := &domain.Order{ID: orderID}
		return insertOrderEvent(ctx, tx, order, domain.OrderEventCancelled)
	})
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := r.queryOrder(ctx, orderSelect+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadOrderItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByOwner(ctx context.Context, owner identity.Owner) ([]*domain.Order, error) {
	var (
		query string
		arg   interface{}
	)
	if owner.UserID != nil {
		query = orderSelect + ` WHERE user_id = $1 ORDER BY created_at DESC`
		arg = *owner.UserID
	} else {
		query = orderSelect + ` WHERE guest_id = $1 ORDER BY created_at DESC`
		arg = *owner.GuestID
	}

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query orders by owner: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, order := range orders {
		if err := r.loadOrderItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetOrderForTracking is the guest lookup: order id plus the contact email
// captured at checkout.
func (r *Repository) GetOrderForTracking(ctx context.Context, id uuid.UUID, email string) (*domain.Order, error) {
	order, err := r.queryOrder(ctx, orderSelect+` WHERE id = $1 AND guest_email = $2`, id, email)
	if err != nil {
		return nil, err
	}
	if err := r.loadOrderItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

const orderSelect = `SELECT id, user_id, guest_id, guest_email, address_id, total_amount,
       status, payment_status, cart_snapshot, created_at, updated_at
       FROM orders`

func (r *Repository) queryOrder(ctx context.Context, query string, args ...interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func scanOrder(scan func(...interface{}) error) (*domain.Order, error) {
	var (
		order        domain.Order
		snapshotJSON []byte
	)
	err := scan(
		&order.ID,
		&order.UserID,
		&order.GuestID,
		&order.GuestEmail,
		&order.AddressID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentStatus,
		&snapshotJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order row: %w", err)
	}
	if snapshotJSON != nil {
		if err := json.Unmarshal(snapshotJSON, &order.CartSnapshot); err != nil {
			return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
		}
	}
	return &order, nil
}

func (r *Repository) loadOrderItems(ctx context.Context, order *domain.Order) error {
	query := `SELECT id, order_id, product_id, product_name, quantity, price_at_purchase, size, color
	          FROM order_items WHERE order_id = $1`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.PriceAtPurchase,
			&item.Size,
			&item.Color,
		); err != nil {
			return fmt.Errorf("scan order item row: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order, snapshotJSON []byte) error {
	query := `INSERT INTO orders
	          (id, user_id, guest_id, guest_email, address_id, total_amount, status, payment_status,
	           cart_snapshot, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	var snapshot interface{}
	if snapshotJSON != nil {
		snapshot = snapshotJSON
	}
	_, err := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.GuestID,
		order.GuestEmail,
		order.AddressID,
		order.TotalAmount,
		order.Status,
		order.PaymentStatus,
		snapshot)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, items []domain.OrderItem) error {
	query := `INSERT INTO order_items
	          (id, order_id, product_id, product_name, quantity, price_at_purchase, size, color)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, item := range items {
		id := item.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, query,
			id,
			orderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.PriceAtPurchase,
			item.Size,
			item.Color,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func deleteCartItems(ctx context.Context, tx *sql.Tx, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = id.String()
	}
	query := `DELETE FROM cart_items WHERE id = ANY($1)`
	if _, err := tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete consumed cart items: %w", err)
	}
	return nil
}

func insertOrderEvent(ctx context.Context, tx *sql.Tx, order *domain.Order, eventType string) error {
	payload := map[string]interface{}{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"event":        eventType,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal order event payload: %w", err)
	}

	query := `INSERT INTO order_events (order_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, query, order.ID, eventType, payloadJSON); err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}
