package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/soulax-ranjan/ani-ayu-api/internal/cache"
	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/repository"
)

// CartRepo is the slice of the store the cart service needs.
type CartRepo interface {
	repository.CartStore
	repository.ProductStore
}

type CartService struct {
	repo  CartRepo
	cache cache.CartCache
	sfg   singleflight.Group // prevents cache stampede on the priced-cart read
}

func NewCartService(repo CartRepo, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
	}
}

// getOrCreateCart resolves the single open cart for an owner, creating it
// lazily. Concurrent first adds race on the owner uniqueness constraint; the
// loser re-reads the winner's row, so exactly one cart exists per owner.
func (s *CartService) getOrCreateCart(ctx context.Context, owner identity.Owner) (*domain.Cart, error) {
	cart, err := s.repo.GetCartByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	cart = &domain.Cart{
		ID:      uuid.New(),
		UserID:  owner.UserID,
		GuestID: owner.GuestID,
	}
	errCreate := s.repo.CreateCart(ctx, cart)
	if errCreate == nil {
		return cart, nil
	}
	if errors.Is(errCreate, repository.ErrCartExists) {
		return s.repo.GetCartByOwner(ctx, owner)
	}
	return nil, errCreate
}

// AddItem upserts a cart line; an existing (product, size, color) combination
// has its quantity incremented. Stock is not validated here.
func (s *CartService) AddItem(ctx context.Context, owner identity.Owner, productID uuid.UUID, quantity int, size, color string) error {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return err
	}

	cart, err := s.getOrCreateCart(ctx, owner)
	if err != nil {
		return err
	}

	item := &domain.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: productID,
		Size:      size,
		Color:     color,
		Quantity:  quantity,
	}
	if err := s.repo.AddCartItem(ctx, item); err != nil {
		log.Printf("repo add item error: %v", err)
		return err
	}

	s.invalidate(owner)
	return nil
}

// GetCart returns the owner's cart joined to live catalog prices. An owner
// with no cart yet gets an empty cart, not an error.
func (s *CartService) GetCart(ctx context.Context, owner identity.Owner) (*domain.PricedCart, error) {
	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, owner.Key())
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCartByOwner(ctx, owner)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return &domain.PricedCart{
				Cart: domain.Cart{
					UserID:    owner.UserID,
					GuestID:   owner.GuestID,
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				},
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		items, errItems := s.repo.GetCartItemsWithPrices(ctx, cart.ID, nil)
		if errItems != nil {
			return nil, errItems
		}

		priced := &domain.PricedCart{Cart: *cart, Items: items}
		for _, item := range items {
			priced.TotalItems += item.Quantity
			priced.TotalAmount += item.Subtotal
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), owner.Key(), priced); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return priced, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PricedCart), nil
}

// UpdateItemQuantity sets a line's quantity; zero removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner identity.Owner, itemID uuid.UUID, quantity int) error {
	cart, err := s.repo.GetCartByOwner(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return ErrNoActiveSession
	}
	if err != nil {
		return err
	}

	if quantity == 0 {
		err = s.repo.RemoveCartItem(ctx, cart.ID, itemID)
	} else {
		err = s.repo.UpdateCartItemQuantity(ctx, cart.ID, itemID, quantity)
	}
	if err != nil {
		return err
	}

	s.invalidate(owner)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, owner identity.Owner, itemID uuid.UUID) error {
	cart, err := s.repo.GetCartByOwner(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return ErrNoActiveSession
	}
	if err != nil {
		return err
	}

	if err := s.repo.RemoveCartItem(ctx, cart.ID, itemID); err != nil {
		return err
	}

	s.invalidate(owner)
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, owner identity.Owner) error {
	cart, err := s.repo.GetCartByOwner(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return ErrNoActiveSession
	}
	if err != nil {
		return err
	}

	if err := s.repo.ClearCart(ctx, cart.ID); err != nil {
		return err
	}

	s.invalidate(owner)
	return nil
}

// invalidate drops the cached priced cart after any mutation, including the
// checkout paths that consume cart lines.
func (s *CartService) invalidate(owner identity.Owner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner.Key()); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
