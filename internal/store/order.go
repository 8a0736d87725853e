package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/minishop/apiserver/types"
)

// OrderRepository handles persistence for orders, including the
// transactional purchase write.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Purchase decrements the product's stock and inserts the order row in a
// single transaction. The decrement is a conditional update, so the
// database serializes concurrent purchases and stock can never go
// negative. Returns the created order and the remaining stock.
func (r *OrderRepository) Purchase(ctx context.Context, productID, userID, quantity int) (types.Order, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Order{}, 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	const decrement = `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING stock`
	var remaining int
	if err := tx.QueryRowContext(ctx, decrement, productID, quantity, now).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, 0, r.classifyDecrementFailure(ctx, tx, productID)
		}
		return types.Order{}, 0, err
	}

	order := types.Order{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
	}

	const insert = `
		INSERT INTO orders (user_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, insert, order.UserID, order.ProductID, order.Quantity, order.CreatedAt).Scan(&order.ID); err != nil {
		return types.Order{}, 0, err
	}

	if err := tx.Commit(); err != nil {
		return types.Order{}, 0, err
	}

	return order, remaining, nil
}

// classifyDecrementFailure tells a missing product apart from one with
// too little stock after the conditional update matched no rows.
func (r *OrderRepository) classifyDecrementFailure(ctx context.Context, tx *sql.Tx, productID int) error {
	const query = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
	var exists bool
	if err := tx.QueryRowContext(ctx, query, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (r *OrderRepository) GetByID(ctx context.Context, id int) (types.Order, error) {
	const query = `
		SELECT id, user_id, product_id, quantity, created_at
		FROM orders
		WHERE id = $1`
	var order types.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.ProductID,
		&order.Quantity,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	const query = `
		SELECT id, user_id, product_id, quantity, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]types.Order, 0)
	for rows.Next() {
		var order types.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.ProductID,
			&order.Quantity,
			&order.CreatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM orders WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
