package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address belongs to a user or a guest. Email is optional and becomes the
// order contact for guest checkouts when the request carries no authenticated
// email.
type Address struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"-"`
	GuestID      *string    `json:"-"`
	FullName     string     `json:"full_name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email,omitempty"`
	AddressLine1 string     `json:"address_line1"`
	AddressLine2 string     `json:"address_line2,omitempty"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Country      string     `json:"country"`
	PostalCode   string     `json:"postal_code"`
	IsDefault    bool       `json:"is_default"`
	CreatedAt    time.Time  `json:"created_at"`
}
