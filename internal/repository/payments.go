package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
)

func (r *Repository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `INSERT INTO payments
	          (id, order_id, razorpay_order_id, amount, currency, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.RazorpayOrderID,
		payment.Amount,
		payment.Currency,
		payment.Status)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *Repository) GetPaymentByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*domain.Payment, error) {
	query := `SELECT id, order_id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
	                 amount, currency, method, status, failure_reason, created_at, updated_at
	          FROM payments WHERE razorpay_order_id = $1`

	var p domain.Payment
	err := r.db.QueryRowContext(ctx, query, razorpayOrderID).Scan(
		&p.ID,
		&p.OrderID,
		&p.RazorpayOrderID,
		&p.RazorpayPaymentID,
		&p.RazorpaySignature,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.Status,
		&p.FailureReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment by razorpay order id: %w", err)
	}
	return &p, nil
}

// The three transitions below are conditional updates guarded by the current
// status, so any handler (verify endpoint, webhook) may advance the payment
// but none can regress it. The bool reports whether this call won the
// transition.

func (r *Repository) MarkPaymentAuthorized(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	query := `UPDATE payments SET status = 'authorized', updated_at = NOW()
	          WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, paymentID)
	if err != nil {
		return false, fmt.Errorf("mark payment authorized: %w", err)
	}
	return advanced(res)
}

func (r *Repository) CapturePayment(ctx context.Context, paymentID uuid.UUID, razorpayPaymentID, signature, method string) (bool, error) {
	query := `UPDATE payments
	          SET status = 'captured', razorpay_payment_id = $2, razorpay_signature = $3,
	              method = $4, updated_at = NOW()
	          WHERE id = $1 AND status IN ('pending', 'authorized')`
	res, err := r.db.ExecContext(ctx, query, paymentID, razorpayPaymentID, signature, method)
	if err != nil {
		return false, fmt.Errorf("capture payment: %w", err)
	}
	return advanced(res)
}

func (r *Repository) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) (bool, error) {
	query := `UPDATE payments SET status = 'failed', failure_reason = $2, updated_at = NOW()
	          WHERE id = $1 AND status IN ('pending', 'authorized')`
	res, err := r.db.ExecContext(ctx, query, paymentID, reason)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	return advanced(res)
}

func advanced(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
