package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

type OrderService struct {
	repo repository.OrderStore
}

func NewOrderService(repo repository.OrderStore) *OrderService {
	return &OrderService{repo: repo}
}

func (s *OrderService) ListOrders(ctx context.Context, owner identity.Owner) ([]*domain.Order, error) {
	return s.repo.ListOrdersByOwner(ctx, owner)
}

// GetOrder returns an order only to its owner; anyone else sees not-found.
func (s *OrderService) GetOrder(ctx context.Context, owner identity.Owner, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsOrder(owner, order) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// TrackOrder is the guest lookup by order id plus the contact email captured
// at checkout; no session required.
func (s *OrderService) TrackOrder(ctx context.Context, id uuid.UUID, email string) (*domain.Order, error) {
	return s.repo.GetOrderForTracking(ctx, id, email)
}

func ownsOrder(owner identity.Owner, order *domain.Order) bool {
	if owner.UserID != nil && order.UserID != nil {
		return *owner.UserID == *order.UserID
	}
	if owner.GuestID != nil && order.GuestID != nil {
		return *owner.GuestID == *order.GuestID
	}
	return false
}
