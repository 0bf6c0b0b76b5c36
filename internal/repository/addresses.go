package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
)

// CreateAddress applies the default-address policy inside one transaction: an
// owner's first address becomes the default, and a new explicit default
// demotes the previous one.
func (r *Repository) CreateAddress(ctx context.Context, address *domain.Address) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		ownerCond, ownerArg := addressOwner(address)

		var count int
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM addresses WHERE %s`, ownerCond)
		if err := tx.QueryRowContext(ctx, countQuery, ownerArg).Scan(&count); err != nil {
			return fmt.Errorf("count addresses: %w", err)
		}
		if count == 0 {
			address.IsDefault = true
		} else if address.IsDefault {
			demote := fmt.Sprintf(`UPDATE addresses SET is_default = FALSE WHERE %s`, ownerCond)
			if _, err := tx.ExecContext(ctx, demote, ownerArg); err != nil {
				return fmt.Errorf("demote default addresses: %w", err)
			}
		}

		query := `INSERT INTO addresses
		          (id, user_id, guest_id, full_name, phone, email, address_line1, address_line2,
		           city, state, country, postal_code, is_default, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())`
		_, err := tx.ExecContext(ctx, query,
			address.ID,
			address.UserID,
			address.GuestID,
			address.FullName,
			address.Phone,
			address.Email,
			address.AddressLine1,
			address.AddressLine2,
			address.City,
			address.State,
			address.Country,
			address.PostalCode,
			address.IsDefault)
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		return nil
	})
}

func (r *Repository) ListAddresses(ctx context.Context, owner identity.Owner) ([]domain.Address, error) {
	var (
		query string
		arg   interface{}
	)
	if owner.UserID != nil {
		query = addressSelect + ` WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`
		arg = *owner.UserID
	} else {
		query = addressSelect + ` WHERE guest_id = $1 ORDER BY is_default DESC, created_at DESC`
		arg = *owner.GuestID
	}

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := scanAddress(rows.Scan, &a); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return addresses, nil
}

func (r *Repository) GetAddress(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	query := addressSelect + ` WHERE id = $1`

	var a domain.Address
	err := scanAddress(r.db.QueryRowContext(ctx, query, id).Scan, &a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query address by id: %w", err)
	}
	return &a, nil
}

const addressSelect = `SELECT id, user_id, guest_id, full_name, phone, email, address_line1,
       address_line2, city, state, country, postal_code, is_default, created_at
       FROM addresses`

func scanAddress(scan func(...interface{}) error, a *domain.Address) error {
	return scan(
		&a.ID,
		&a.UserID,
		&a.GuestID,
		&a.FullName,
		&a.Phone,
		&a.Email,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.Country,
		&a.PostalCode,
		&a.IsDefault,
		&a.CreatedAt,
	)
}

func addressOwner(address *domain.Address) (string, interface{}) {
	if address.UserID != nil {
		return "user_id = $1", *address.UserID
	}
	return "guest_id = $1", *address.GuestID
}
