package voucher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	HasRedemption(ctx context.Context, userID uint) (bool, error)

	// Redeem runs inside the caller's transaction so the redemption persists
	// iff the order does. The primary key on voucher_redemptions(user_id)
	// enforces the one-voucher-per-user-ever invariant under concurrency.
	Redeem(ctx context.Context, tx *sql.Tx, voucherID uuid.UUID, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	const q = `
		SELECT
			id, code, discount_type, value,
			min_order_value, max_order_value, max_discount_amount,
			start_date, end_date, remaining, is_active
		FROM vouchers
		WHERE code = $1
	`

	var v Voucher
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&v.ID, &v.Code, &v.DiscountType, &v.Value,
		&v.MinOrderValue, &v.MaxOrderValue, &v.MaxDiscountAmount,
		&v.StartDate, &v.EndDate, &v.Remaining, &v.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *repository) HasRedemption(ctx context.Context, userID uint) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM voucher_redemptions WHERE user_id = $1)
	`, userID).Scan(&exists)
	return exists, err
}

func (r *repository) Redeem(ctx context.Context, tx *sql.Tx, voucherID uuid.UUID, userID uint) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO voucher_redemptions (user_id, voucher_id, redeemed_at)
		VALUES ($1, $2, NOW())
	`, userID, voucherID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return ErrVoucherAlreadyUsed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE vouchers
		SET remaining = remaining - 1
		WHERE id = $1
		  AND remaining > 0
	`, voucherID)
	if err != nil {
		return fmt.Errorf("decrement voucher quantity: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrVoucherExhausted
	}
	return nil
}
