package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	SaveSession(ctx context.Context, s *PaymentSession) error
	GetSession(ctx context.Context, orderCode string) (*PaymentSession, error)

	// ConsumeSession marks the session as settled. Conditional on it being
	// unconsumed, so racing callback/IPN/sweeper invocations get exactly one
	// true result between them.
	ConsumeSession(ctx context.Context, orderCode string) (bool, error)

	// ExpiredUnconsumed lists sessions past their expiry that nobody settled,
	// for the background sweep.
	ExpiredUnconsumed(ctx context.Context, limit int) ([]*PaymentSession, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveSession(ctx context.Context, s *PaymentSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_sessions (
			id, order_code, amount, currency, redirect_url,
			expires_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,NOW())
	`,
		s.ID, s.OrderCode, s.Amount, s.Currency, s.RedirectURL, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	return nil
}

func (r *repository) GetSession(ctx context.Context, orderCode string) (*PaymentSession, error) {
	var s PaymentSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_code, amount, currency, redirect_url,
		       expires_at, created_at, consumed_at
		FROM payment_sessions
		WHERE order_code = $1
	`, orderCode).Scan(
		&s.ID, &s.OrderCode, &s.Amount, &s.Currency, &s.RedirectURL,
		&s.ExpiresAt, &s.CreatedAt, &s.ConsumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) ConsumeSession(ctx context.Context, orderCode string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_sessions
		SET consumed_at = NOW()
		WHERE order_code = $1
		  AND consumed_at IS NULL
	`, orderCode)
	if err != nil {
		return false, fmt.Errorf("consume payment session: %w", err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *repository) ExpiredUnconsumed(ctx context.Context, limit int) ([]*PaymentSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_code, amount, currency, redirect_url,
		       expires_at, created_at, consumed_at
		FROM payment_sessions
		WHERE consumed_at IS NULL
		  AND expires_at < NOW()
		ORDER BY expires_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*PaymentSession
	for rows.Next() {
		var s PaymentSession
		if err := rows.Scan(
			&s.ID, &s.OrderCode, &s.Amount, &s.Currency, &s.RedirectURL,
			&s.ExpiresAt, &s.CreatedAt, &s.ConsumedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}
