package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
)

func (r *Repository) GetCartByOwner(ctx context.Context, owner identity.Owner) (*domain.Cart, error) {
	var (
		query string
		arg   interface{}
	)
	if owner.UserID != nil {
		query = `SELECT id, user_id, guest_id, created_at, updated_at FROM carts WHERE user_id = $1`
		arg = *owner.UserID
	} else {
		query = `SELECT id, user_id, guest_id, created_at, updated_at FROM carts WHERE guest_id = $1`
		arg = *owner.GuestID
	}

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.GuestID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart by owner: %w", err)
	}
	return &cart, nil
}

func (r *Repository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	query := `INSERT INTO carts (id, user_id, guest_id, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query, cart.ID, cart.UserID, cart.GuestID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCartExists
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

// AddCartItem upserts a cart line: the (cart, product, size, color) unique key
// absorbs the duplicate-add case by incrementing quantity.
func (r *Repository) AddCartItem(ctx context.Context, item *domain.CartItem) error {
	query := `INSERT INTO cart_items (id, cart_id, product_id, size, color, quantity, added_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())
	          ON CONFLICT (cart_id, product_id, size, color)
	          DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.Size,
		item.Color,
		item.Quantity)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// GetCartItemsWithPrices joins cart lines to the live catalog price. itemIDs
// optionally restricts the read to a client-specified subset of lines.
func (r *Repository) GetCartItemsWithPrices(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) ([]domain.PricedCartItem, error) {
	query := `SELECT ci.id, ci.cart_id, ci.product_id, ci.size, ci.color, ci.quantity, ci.added_at,
	                 p.name, p.price
	          FROM cart_items ci
	          JOIN products p ON p.id = ci.product_id
	          WHERE ci.cart_id = $1`
	args := []interface{}{cartID}

	if len(itemIDs) > 0 {
		query += ` AND ci.id = ANY($2)`
		ids := make([]string, len(itemIDs))
		for i, id := range itemIDs {
			ids[i] = id.String()
		}
		args = append(args, pq.Array(ids))
	}
	query += ` ORDER BY ci.added_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.PricedCartItem
	for rows.Next() {
		var item domain.PricedCartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Size,
			&item.Color,
			&item.Quantity,
			&item.AddedAt,
			&item.ProductName,
			&item.Price,
		); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		item.Subtotal = item.Price * float64(item.Quantity)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) UpdateCartItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	query := `UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, cartID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	return requireRow(res, ErrCartItemNotFound)
}

func (r *Repository) RemoveCartItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, cartID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return requireRow(res, ErrCartItemNotFound)
}

func (r *Repository) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
