package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopora-be/internal/logger"

	"go.uber.org/zap"
)

// Ledger is the only writer of variant stock. Reserve and Release are single
// conditional updates so concurrent checkouts for the same variant cannot
// oversell; correctness does not depend on any in-process lock.
type Ledger interface {
	Reserve(ctx context.Context, variantID string, quantity int) error
	Release(ctx context.Context, variantID string, quantity int) error
	ReserveAll(ctx context.Context, lines []Line) error
	ReleaseAll(ctx context.Context, lines []Line) error
	VariantForCheckout(ctx context.Context, variantID string) (*Variant, error)
}

type ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) Ledger {
	return &ledger{db: db}
}

// Reserve decrements stock iff enough is available. Rows affected 0 means the
// guard failed: either the variant is unknown/inactive or stock is short.
func (l *ledger) Reserve(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE variants
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2
		  AND is_active = true
		  AND stock >= $1
	`, quantity, variantID)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Release is the compensating increment for a cancelled order or an expired
// payment session.
func (l *ledger) Release(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE variants
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, variantID)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrVariantNotFound
	}
	return nil
}

// ReserveAll reserves every line or nothing: on the first failing line, all
// lines reserved so far are released before the error is surfaced.
func (l *ledger) ReserveAll(ctx context.Context, lines []Line) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.String("method", "ReserveAll"),
		zap.Int("line_count", len(lines)),
	)

	for i, line := range lines {
		if err := l.Reserve(ctx, line.VariantID, line.Quantity); err != nil {
			log.Warn("reservation failed, rolling back reserved lines",
				zap.Int("failed_index", i),
				zap.String("variant_id", line.VariantID),
				zap.Error(err),
			)
			for _, done := range lines[:i] {
				if relErr := l.Release(ctx, done.VariantID, done.Quantity); relErr != nil {
					log.Error("compensating release failed",
						zap.String("variant_id", done.VariantID),
						zap.Error(relErr),
					)
				}
			}
			if errors.Is(err, ErrInsufficientStock) {
				return fmt.Errorf("%w for variant %s", ErrInsufficientStock, line.VariantID)
			}
			return err
		}
	}

	return nil
}

func (l *ledger) ReleaseAll(ctx context.Context, lines []Line) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.String("method", "ReleaseAll"),
	)

	var firstErr error
	for _, line := range lines {
		if err := l.Release(ctx, line.VariantID, line.Quantity); err != nil {
			log.Error("release failed",
				zap.String("variant_id", line.VariantID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// VariantForCheckout re-reads the live price and active flag; client-cached
// prices are never trusted.
func (l *ledger) VariantForCheckout(ctx context.Context, variantID string) (*Variant, error) {
	const q = `
		SELECT
			v.id, v.product_id, p.name,
			v.name, v.color, v.size,
			v.price, v.stock, v.is_active
		FROM variants v
		LEFT JOIN products p ON p.id = v.product_id
		WHERE v.id = $1
	`

	var v Variant
	err := l.db.QueryRowContext(ctx, q, variantID).Scan(
		&v.ID, &v.ProductID, &v.ProductName,
		&v.Name, &v.Color, &v.Size,
		&v.Price, &v.Stock, &v.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}
