package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// LockedProduct is the price/stock snapshot of a product read under a row
// lock during checkout.
type LockedProduct struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
	Stock int
}

// OrderRepository defines the interface for order data access. The Tx
// methods participate in the checkout transaction owned by the service.
type OrderRepository interface {
	LockProductTx(ctx context.Context, tx *sql.Tx, productID uuid.UUID) (*LockedProduct, error)
	DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) error
	CreateTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateItemTx(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error

	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// LockProductTx reads an active product's price and stock under FOR UPDATE.
// The lock serializes concurrent checkouts touching the same product until
// the transaction commits or rolls back.
func (r *orderRepository) LockProductTx(ctx context.Context, tx *sql.Tx, productID uuid.UUID) (*LockedProduct, error) {
	query := `
		SELECT id, name, price, stock
		FROM products
		WHERE id = $1 AND is_active = TRUE
		FOR UPDATE
	`

	product := &LockedProduct{}
	err := tx.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	return product, nil
}

// DecrementStockTx reduces a product's stock by quantity. The caller holds
// the row lock and has already validated quantity against the locked stock,
// so the CHECK (stock >= 0) constraint cannot fire.
func (r *orderRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) error {
	query := `UPDATE products SET stock = stock - $2 WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return ErrProductNotFound
	}

	return nil
}

// CreateTx inserts the order row
func (r *orderRepository) CreateTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, buyer_id, total_amount, status, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.BuyerID,
		order.TotalAmount,
		order.Status,
		order.ShippingAddress,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateItemTx inserts one order item row
func (r *orderRepository) CreateItemTx(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_at_time)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.ExecContext(ctx, query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.PriceAtTime)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

const orderItemColumns = `
	oi.id, oi.order_id, oi.product_id, p.name, p.seller_id,
	TRIM(u.first_name || ' ' || u.last_name),
	oi.quantity, oi.price_at_time
`

// loadItems fetches all items for the given orders, keyed by order ID
func (r *orderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]*domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[uuid.UUID][]*domain.OrderItem{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN users u ON u.id = p.seller_id
		WHERE oi.order_id = ANY($1::uuid[])
	`, orderItemColumns)

	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := map[uuid.UUID][]*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.SellerID,
			&item.SellerName,
			&item.Quantity,
			&item.PriceAtTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.BuyerName,
		&order.TotalAmount,
		&order.Status,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

const orderColumns = `
	o.id, o.buyer_id, TRIM(u.first_name || ' ' || u.last_name),
	o.total_amount, o.status, o.shipping_address, o.created_at, o.updated_at
`

// FindByID retrieves an order with all of its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		JOIN users u ON u.id = o.buyer_id
		WHERE o.id = $1
	`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = []*domain.OrderItem{}
	}

	return order, nil
}

// ListByBuyer retrieves a buyer's orders, newest first, with items
func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		JOIN users u ON u.id = o.buyer_id
		WHERE o.buyer_id = $1
		ORDER BY o.created_at DESC
	`, orderColumns)

	return r.listOrders(ctx, query, buyerID)
}

// ListBySeller retrieves orders containing at least one of the seller's
// products, newest first, with all items (the service filters items down to
// the seller's own).
func (r *orderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM orders o
		JOIN users u ON u.id = o.buyer_id
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE p.seller_id = $1
		ORDER BY o.created_at DESC
	`, orderColumns)

	return r.listOrders(ctx, query, sellerID)
}

func (r *orderRepository) listOrders(ctx context.Context, query string, arg interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	orderIDs := []uuid.UUID{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	items, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
		if order.Items == nil {
			order.Items = []*domain.OrderItem{}
		}
	}

	return orders, nil
}

// UpdateStatus sets the status of an order
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
