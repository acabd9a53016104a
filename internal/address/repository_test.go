package address

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetUserAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	addrID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "name", "phone",
			"address_line1", "address_line2",
			"city", "province", "postal_code", "country",
			"is_default", "is_active",
		}).AddRow(
			addrID, 1, "Home", "0123456789",
			"12 Elm St", nil,
			"Hanoi", "Hanoi", "100000", "VN",
			true, true,
		)

		mock.ExpectQuery(`SELECT .* FROM addresses WHERE id = \$1 AND user_id = \$2 AND is_active = true`).
			WithArgs(addrID.String(), uint(1)).
			WillReturnRows(rows)

		a, err := repo.GetUserAddress(ctx, addrID.String(), 1)
		assert.NoError(t, err)
		assert.Equal(t, "Hanoi", a.City)
	})

	t.Run("NotOwned", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM addresses`).
			WithArgs(addrID.String(), uint(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetUserAddress(ctx, addrID.String(), 2)
		assert.ErrorIs(t, err, ErrAddressInvalid)
	})
}
