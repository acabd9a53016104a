package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopora-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetItems(ctx context.Context, userID uint) ([]*CartItem, error)
	GetItemByVariant(ctx context.Context, userID uint, variantID string) (*CartItem, error)
	CreateItem(ctx context.Context, userID uint, variantID string, quantity int) (*CartItem, error)
	UpdateQuantity(ctx context.Context, userID uint, variantID string, quantity int) error
	RemoveItem(ctx context.Context, userID uint, variantID string) error
	Clear(ctx context.Context, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetItems(ctx context.Context, userID uint) ([]*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetItems"),
		zap.Uint("user_id", userID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			c.id, c.variant_id, c.quantity, c.created_at, c.updated_at,
			p.name,
			v.name, v.color, v.size, v.price, v.stock, v.is_active
		FROM carts c
		JOIN variants v ON c.variant_id = v.id
		JOIN products p ON v.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*CartItem
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(
			&item.ID, &item.VariantID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&item.ProductName,
			&item.VariantName, &item.Color, &item.Size, &item.UnitPrice, &item.Stock, &item.IsActive,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *repository) GetItemByVariant(ctx context.Context, userID uint, variantID string) (*CartItem, error) {
	var item CartItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, variant_id, quantity, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND variant_id = $2
	`, userID, variantID).Scan(
		&item.ID, &item.VariantID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, userID uint, variantID string, quantity int) (*CartItem, error) {
	var item CartItem
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (user_id, variant_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, variant_id, quantity, created_at, updated_at
	`, userID, variantID, quantity).Scan(
		&item.ID, &item.VariantID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create cart item: %w", err)
	}
	return &item, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, userID uint, variantID string, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET quantity = $1, updated_at = NOW()
		WHERE user_id = $2 AND variant_id = $3
	`, quantity, userID, variantID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) RemoveItem(ctx context.Context, userID uint, variantID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE user_id = $1 AND variant_id = $2
	`, userID, variantID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, userID uint) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}
