package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
)

// CheckoutService turns a cart into a persisted order snapshot. There is
// no payment step: a successful checkout stores the order with its items
// and clears the cart.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, store *cart.Store) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
}

type checkoutService struct {
	orderRepo repository.OrderRepository
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(orderRepo repository.OrderRepository) CheckoutService {
	return &checkoutService{orderRepo: orderRepo}
}

// PlaceOrder persists the current cart as an order for the user and then
// clears the cart. The cart is only cleared after the order committed, so
// a failed checkout leaves the cart intact for a retry.
func (s *checkoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, store *cart.Store) (*domain.Order, error) {
	lines := store.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Total comes from the same snapshot the items do, so a concurrent
	// mutation on the cart cannot skew the order against its own lines.
	var total float64
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}

	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Total:     total,
		CreatedAt: time.Now(),
	}

	for _, line := range lines {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	store.Clear()

	return order, nil
}

// ListOrders returns the user's order history, newest first
func (s *checkoutService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one of the user's orders. Another user's order is
// reported as not found rather than forbidden.
func (s *checkoutService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}
