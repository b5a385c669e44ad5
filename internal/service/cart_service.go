package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientStock is returned when a requested quantity exceeds the
	// product's current stock. Cart-side checks are advisory; the checkout
	// transaction is the authoritative one.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError names the offending product
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

// Is makes the error match ErrInsufficientStock in errors.Is checks
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CartService defines the interface for cart business logic
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the user's cart, creating an empty one on first access
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the user's cart. If the
// product is already in the cart the quantities merge, and the combined
// quantity is re-validated against current stock. Stock is not reserved.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	product, err := s.productRepo.FindActiveByID(ctx, productID)
	if err != nil {
		return err
	}

	if product.Stock < quantity {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get cart: %w", err)
	}

	newQuantity := quantity
	for _, item := range cart.Items {
		if item.ProductID == productID {
			newQuantity += item.Quantity
			break
		}
	}

	if product.Stock < newQuantity {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   newQuantity,
			Available:   product.Stock,
		}
	}

	item := &domain.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  newQuantity,
		AddedAt:   time.Now(),
	}
	if err := s.cartRepo.UpsertItem(ctx, item); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

// UpdateItem sets the quantity of one line in the user's own cart
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	item, err := s.cartRepo.FindItem(ctx, itemID, userID)
	if err != nil {
		return err
	}

	product, err := s.productRepo.FindActiveByID(ctx, item.ProductID)
	if err != nil {
		return err
	}

	if product.Stock < quantity {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	return s.cartRepo.UpdateItemQuantity(ctx, itemID, userID, quantity)
}

// RemoveItem deletes one line from the user's own cart
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.cartRepo.RemoveItem(ctx, itemID, userID)
}

// Clear empties the user's cart. Clearing an already-empty cart succeeds.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cartRepo.Clear(ctx, userID)
}
