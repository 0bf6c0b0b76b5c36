package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

type AddressService struct {
	repo repository.AddressStore
}

func NewAddressService(repo repository.AddressStore) *AddressService {
	return &AddressService{repo: repo}
}

// CreateAddress stamps the owner onto the address; the first-address-becomes-
// default policy lives in the store.
func (s *AddressService) CreateAddress(ctx context.Context, owner identity.Owner, address *domain.Address) error {
	address.ID = uuid.New()
	address.UserID = owner.UserID
	address.GuestID = guestIDFor(owner)
	return s.repo.CreateAddress(ctx, address)
}

func (s *AddressService) ListAddresses(ctx context.Context, owner identity.Owner) ([]domain.Address, error) {
	return s.repo.ListAddresses(ctx, owner)
}
