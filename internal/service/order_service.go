package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidStatus    = errors.New("invalid order status")
)

// OrderService defines the interface for order business logic
type OrderService interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, shippingAddress string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, requester *domain.User) (*domain.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, requester *domain.User, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	db        *sql.DB
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService. The service owns
// the checkout transaction; the repositories only run statements inside it.
func NewOrderService(db *sql.DB, orderRepo repository.OrderRepository, cartRepo repository.CartRepository, logger *zap.Logger) OrderService {
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		logger:    logger,
	}
}

// CreateOrder converts the buyer's cart into an order in one transaction:
// lock every product row, validate stock, snapshot prices, insert the order
// and its items, decrement stock, clear the cart. Any failure rolls the whole
// thing back; no partial order is ever visible.
func (s *orderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, shippingAddress string) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cart, err := s.cartRepo.FindByUserIDTx(ctx, tx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	order := &domain.Order{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		Status:          domain.OrderStatusPending,
		ShippingAddress: shippingAddress,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	// Lock each product row and validate stock under the lock. Locks are
	// taken in cart order; two carts sharing products may lock in different
	// orders, so a deadlocked transaction surfaces as a failed checkout the
	// caller can resubmit.
	total := decimal.Zero
	items := make([]*domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.orderRepo.LockProductTx(ctx, tx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if product.Stock < line.Quantity {
			s.logger.Warn("Checkout rejected for insufficient stock",
				zap.String("buyer_id", buyerID.String()),
				zap.String("product_id", product.ID.String()),
				zap.Int("requested", line.Quantity),
				zap.Int("available", product.Stock),
			)
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.Stock,
			}
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)

		items = append(items, &domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			PriceAtTime: product.Price,
		})
	}

	order.TotalAmount = total
	order.Items = items

	if err := s.orderRepo.CreateTx(ctx, tx, order); err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := s.orderRepo.CreateItemTx(ctx, tx, item); err != nil {
			return nil, err
		}
		if err := s.orderRepo.DecrementStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.cartRepo.ClearTx(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(items)),
	)

	// Return the fully materialized order with denormalized names
	return s.orderRepo.FindByID(ctx, order.ID)
}

// GetOrder returns an order scoped to the requester: the buyer sees the full
// order; a seller sees only their own items, and only if they have at least
// one item in the order.
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID, requester *domain.User) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.BuyerID == requester.ID {
		return order, nil
	}

	if requester.IsSeller() {
		filtered := filterSellerItems(order, requester.ID)
		if len(filtered.Items) > 0 {
			return filtered, nil
		}
	}

	return nil, ErrPermissionDenied
}

// ListBuyerOrders returns the buyer's orders, newest first
func (s *orderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByBuyer(ctx, buyerID)
}

// ListSellerOrders returns orders containing at least one of the seller's
// products, with items filtered down to theirs.
func (s *orderService) ListSellerOrders(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.Order, 0, len(orders))
	for _, order := range orders {
		filtered = append(filtered, filterSellerItems(order, sellerID))
	}
	return filtered, nil
}

// UpdateStatus sets an order's status. The requester must be a seller with at
// least one item in the order; the new status must be a defined value. Any
// status may follow any other.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, requester *domain.User, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !requester.IsSeller() {
		return nil, ErrPermissionDenied
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !orderHasSellerItems(order, requester.ID) {
		return nil, ErrPermissionDenied
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("seller_id", requester.ID.String()),
		zap.String("status", string(status)),
	)

	return s.orderRepo.FindByID(ctx, orderID)
}

// filterSellerItems returns a shallow copy of the order with only the given
// seller's items.
func filterSellerItems(order *domain.Order, sellerID uuid.UUID) *domain.Order {
	filtered := *order
	filtered.Items = []*domain.OrderItem{}
	for _, item := range order.Items {
		if item.SellerID == sellerID {
			filtered.Items = append(filtered.Items, item)
		}
	}
	return &filtered
}

func orderHasSellerItems(order *domain.Order, sellerID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
