package address

import (
	"context"
	"database/sql"
	"errors"

	"shopora-be/internal/logger"

	"go.uber.org/zap"
)

// Repository is the slice of the address book checkout needs. Address CRUD is
// owned by a separate admin surface.
type Repository interface {
	GetUserAddress(ctx context.Context, addressID string, userID uint) (*Address, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetUserAddress(
	ctx context.Context,
	addressID string,
	userID uint,
) (*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetUserAddress"),
		zap.String("address_id", addressID),
		zap.Uint("user_id", userID),
	)

	const q = `
		SELECT
			id, user_id,
			name, phone,
			address_line1, address_line2,
			city, province, postal_code, country,
			is_default, is_active
		FROM addresses
		WHERE id = $1
		  AND user_id = $2
		  AND is_active = true
	`

	var a Address
	err := r.db.QueryRowContext(ctx, q, addressID, userID).Scan(
		&a.ID, &a.UserID,
		&a.Name, &a.Phone,
		&a.Address1, &a.Address2,
		&a.City, &a.Province, &a.Postal, &a.Country,
		&a.IsDefault, &a.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("address not found or not owned by user")
		return nil, ErrAddressInvalid
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	return &a, nil
}
