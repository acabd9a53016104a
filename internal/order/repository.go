package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shopora-be/internal/logger"
	"shopora-be/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrderTx persists the order snapshot and its items in one
	// transaction. The redeem hook (voucher redemption) runs inside the same
	// transaction so a redemption can never outlive a failed order insert.
	CreateOrderTx(ctx context.Context, o *Order, redeem func(context.Context, *sql.Tx) error) error

	GetByCode(ctx context.Context, orderCode string) (*Order, error)
	FetchOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, offset int32) ([]*Order, error)

	// Transition performs the state change iff the current status is one of
	// the allowed sources. Returns whether this call moved the order; false
	// with a nil error means someone else already did, or the state does not
	// permit it; callers decide which it is from the order they hold.
	Transition(ctx context.Context, orderCode string, to OrderStatus, from []OrderStatus) (bool, error)

	// MarkPaid is the success half of reconciliation: one conditional update
	// flips PENDING/UNPAID to PROCESSING/PAID and records the gateway
	// transaction id. A second call affects zero rows.
	MarkPaid(ctx context.Context, orderCode, gatewayTxnID string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOrderTx(
	ctx context.Context,
	o *Order,
	redeem func(context.Context, *sql.Tx) error,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.String("order_code", o.OrderCode),
		zap.Int("item_count", len(o.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_code, user_id,
			status, payment_status, payment_method,
			voucher_id,
			subtotal, discount, shipping_fee, total_amount,
			ship_name, ship_phone, ship_address1, ship_address2,
			ship_city, ship_province, ship_postal, ship_country,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18,NOW(),NOW()
		)
		RETURNING id
	`,
		o.OrderCode, o.UserID,
		o.Status, o.PaymentStatus, o.PaymentMethod,
		o.VoucherID,
		o.Subtotal, o.Discount, o.ShippingFee, o.FinalTotal,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Address1, o.Shipping.Address2,
		o.Shipping.City, o.Shipping.Province, o.Shipping.Postal, o.Shipping.Country,
	).Scan(&o.ID)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, variant_id, variant_name, product_name,
				color, size, quantity, unit_price, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.OrderID, item.VariantID, item.VariantName, item.ProductName,
			item.Color, item.Size, item.Quantity, item.UnitPrice, item.Subtotal,
		)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.String("variant_id", item.VariantID),
				zap.Error(err),
			)
			return err
		}
	}

	if redeem != nil {
		if err := redeem(ctx, tx); err != nil {
			log.Warn("voucher redemption failed inside order transaction", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return err
	}

	committed = true
	log.Info("order created")
	return nil
}

func (r *repository) GetByCode(ctx context.Context, orderCode string) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT
			id, order_code, user_id,
			status, payment_status, payment_method,
			voucher_id, gateway_txn_id,
			subtotal, discount, shipping_fee, total_amount,
			ship_name, ship_phone, ship_address1, ship_address2,
			ship_city, ship_province, ship_postal, ship_country,
			created_at, updated_at
		FROM orders
		WHERE order_code = $1
	`, orderCode).Scan(
		&o.ID, &o.OrderCode, &o.UserID,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.VoucherID, &o.GatewayTxnID,
		&o.Subtotal, &o.Discount, &o.ShippingFee, &o.FinalTotal,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Address1, &o.Shipping.Address2,
		&o.Shipping.City, &o.Shipping.Province, &o.Shipping.Postal, &o.Shipping.Country,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, order_id, variant_id, variant_name, product_name,
			color, size, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id = $1
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.VariantID, &item.VariantName, &item.ProductName,
			&item.Color, &item.Size, &item.Quantity, &item.UnitPrice, &item.Subtotal,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *repository) FetchOrders(
	ctx context.Context,
	filter *OrderFilterInput,
	sort *OrderSortInput,
	limit, offset int32,
) ([]*Order, error) {

	userID, _ := utils.GetUserIDFromContext(ctx)
	isAdmin := utils.IsAdmin(ctx)

	log := logger.FromCtx(ctx).With(
		zap.String("method", "FetchOrders"),
		zap.Bool("is_admin", isAdmin),
		zap.Int32("limit", limit),
		zap.Int32("offset", offset),
	)

	query := `
		SELECT
			o.id, o.order_code, o.user_id,
			o.status, o.payment_status, o.payment_method,
			o.subtotal, o.discount, o.shipping_fee, o.total_amount,
			o.created_at, o.updated_at
		FROM orders o
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if !isAdmin {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, userID)
		argIndex++
	}

	if filter != nil {
		if filter.Search != nil && *filter.Search != "" {
			query += fmt.Sprintf(" AND (o.order_code ILIKE $%d)", argIndex)
			args = append(args, "%"+*filter.Search+"%")
			argIndex++
		}

		if filter.Status != nil && *filter.Status != "" {
			query += fmt.Sprintf(" AND o.status = $%d", argIndex)
			args = append(args, *filter.Status)
			argIndex++
		}

		if filter.DateFrom != nil {
			query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
			args = append(args, *filter.DateFrom)
			argIndex++
		}

		if filter.DateTo != nil {
			query += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
			args = append(args, *filter.DateTo)
			argIndex++
		}
	}

	orderBy := "o.created_at DESC"
	if sort != nil {
		dir := strings.ToUpper(string(sort.Direction))
		if dir != "ASC" && dir != "DESC" {
			dir = "DESC"
		}

		switch sort.Field {
		case OrderSortFieldTotal:
			orderBy = "o.total_amount " + dir
		case OrderSortFieldCreatedAt:
			orderBy = "o.created_at " + dir
		}
	}

	query += " ORDER BY " + orderBy
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.OrderCode, &o.UserID,
			&o.Status, &o.PaymentStatus, &o.PaymentMethod,
			&o.Subtotal, &o.Discount, &o.ShippingFee, &o.FinalTotal,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("orders fetched", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) Transition(
	ctx context.Context,
	orderCode string,
	to OrderStatus,
	from []OrderStatus,
) (bool, error) {

	sources := make([]string, 0, len(from))
	for _, s := range from {
		sources = append(sources, string(s))
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE order_code = $1
		  AND status = ANY($3)
	`, orderCode, to, pq.Array(sources))
	if err != nil {
		return false, fmt.Errorf("transition order: %w", err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *repository) MarkPaid(ctx context.Context, orderCode, gatewayTxnID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'PAID',
		    status = 'PROCESSING',
		    gateway_txn_id = $2,
		    updated_at = NOW()
		WHERE order_code = $1
		  AND status = 'PENDING'
		  AND payment_status = 'UNPAID'
	`, orderCode, gatewayTxnID)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}

	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
