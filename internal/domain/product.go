package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog read model; catalog management happens elsewhere.
// Price is the live price joined onto cart lines at read time and frozen into
// snapshots at checkout.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
