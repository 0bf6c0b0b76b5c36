package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
)

// buildCartSnapshot freezes the cart lines and their live prices at checkout
// time. The snapshot, not the live cart, drives order-item creation once the
// payment is verified.
func buildCartSnapshot(cartID uuid.UUID, items []domain.PricedCartItem, currency string) *domain.CartSnapshot {
	snapshot := &domain.CartSnapshot{
		CartID:     cartID,
		Items:      make([]domain.SnapshotItem, 0, len(items)),
		Currency:   currency,
		CapturedAt: time.Now(),
	}

	var totalAmount float64
	for _, item := range items {
		snapshot.Items = append(snapshot.Items, domain.SnapshotItem{
			CartItemID:  item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Size:        item.Size,
			Color:       item.Color,
		})
		totalAmount += item.Price * float64(item.Quantity)
	}

	snapshot.TotalAmount = totalAmount
	return snapshot
}
