package cache

import (
	"context"
	"errors"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
)

var ErrCacheMiss = errors.New("cart not in cache")

// CartCache caches the priced cart read keyed by owner. Mutations invalidate;
// the database stays the single source of truth.
type CartCache interface {
	Get(ctx context.Context, ownerKey string) (*domain.PricedCart, error)
	Set(ctx context.Context, ownerKey string, cart *domain.PricedCart) error
	Delete(ctx context.Context, ownerKey string) error
}
