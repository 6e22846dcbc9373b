package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateOrderTx(ctx context.Context, o *Order) error
	GetOrderDetail(ctx context.Context, orderID uint) (*Order, error)
	FetchOrders(ctx context.Context, filter ListFilter) ([]*Order, int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, from, to Status) error

	ListStaleOrderIDs(
		ctx context.Context,
		cutoff time.Time,
		afterID uint,
		limit int,
		skipMethods []PaymentMethod,
	) ([]uint, error)
	CancelStale(ctx context.Context, orderID uint, cutoff time.Time) (*Order, error)
	CancelOrder(ctx context.Context, orderID uint) (*Order, error)

	ApplyPaymentResult(
		ctx context.Context,
		orderID uint,
		txnRef string,
		to PaymentStatus,
		providerTxnID string,
	) (*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, user_id, total_amount, status, payment_status, payment_method, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*Order, error) {
	var o Order
	err := s.Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status,
		&o.PaymentStatus, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// withTx runs fn in a READ COMMITTED transaction. Domain errors pass through
// unchanged; anything else is reported as ErrTransactionFailure.
func (r *repository) withTx(ctx context.Context, method string, fn func(tx *sql.Tx) error) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back")
			}
		}
	}()

	if err := fn(tx); err != nil {
		if isDomainError(err) {
			return err
		}
		log.Error("transaction aborted", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}

	committed = true
	return nil
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrStaleTransition) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, product.ErrOutOfStock) ||
		errors.Is(err, product.ErrVariantNotFound)
}

// CreateOrderTx locks every product on the order, reserves stock and inserts
// the order with its items. Prices come from the locked rows, not the caller.
func (r *repository) CreateOrderTx(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.Uint("user_id", o.UserID),
		zap.Int("item_count", len(o.Items)),
	)

	return r.withTx(ctx, "CreateOrderTx", func(tx *sql.Tx) error {
		variantIDs := make([]uint, len(o.Items))
		for i, it := range o.Items {
			variantIDs[i] = it.VariantID
		}

		locked, err := product.LockForCheckout(ctx, tx, variantIDs)
		if err != nil {
			log.Warn("failed to lock checkout variants", zap.Error(err))
			return err
		}

		need := map[uint]int{}
		var total int64
		for i := range o.Items {
			v := locked[o.Items[i].VariantID]
			o.Items[i].ProductID = v.ProductID
			o.Items[i].VariantName = v.Name
			o.Items[i].UnitPrice = v.Price
			need[v.ProductID] += o.Items[i].Quantity
			total += o.Items[i].Subtotal()
		}
		for _, v := range locked {
			if need[v.ProductID] > v.ProductQuantity {
				return fmt.Errorf("%w: %s", product.ErrOutOfStock, v.ProductName)
			}
		}
		o.TotalAmount = total

		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, total_amount, status, payment_status, payment_method)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, o.UserID, o.TotalAmount, o.Status, o.PaymentStatus, o.PaymentMethod).
			Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			log.Error("failed to insert order", zap.Error(err))
			return err
		}

		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			err = tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, variant_id, product_id, variant_name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, it.OrderID, it.VariantID, it.ProductID, it.VariantName, it.Quantity, it.UnitPrice).Scan(&it.ID)
			if err != nil {
				log.Error("failed to insert order item", zap.Int("item_index", i), zap.Error(err))
				return err
			}
		}

		for _, pid := range sortedKeys(need) {
			if err := product.Reserve(ctx, tx, pid, need[pid]); err != nil {
				return err
			}
		}

		log.Info("order created", zap.Uint("order_id", o.ID), zap.Int64("total_amount", o.TotalAmount))
		return nil
	})
}

func (r *repository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Items, err = loadItems(ctx, r.db, orderID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) FetchOrders(ctx context.Context, filter ListFilter) ([]*Order, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FetchOrders"),
		zap.Int("limit", filter.Limit),
		zap.Int("page", filter.Page),
	)

	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentStatus != nil {
		args = append(args, *filter.PaymentStatus)
		conds = append(conds, fmt.Sprintf("payment_status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT `+orderColumns+` FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, offset)...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, 0, err
	}

	log.Debug("orders fetched", zap.Int("count", len(orders)))
	return orders, total, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uint, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleTransition
	}
	return nil
}

// ListStaleOrderIDs returns one keyset page of settlement candidates with
// id > afterID.
func (r *repository) ListStaleOrderIDs(
	ctx context.Context,
	cutoff time.Time,
	afterID uint,
	limit int,
	skipMethods []PaymentMethod,
) ([]uint, error) {
	skip := make([]string, len(skipMethods))
	for i, m := range skipMethods {
		skip[i] = string(m)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status = 'PENDING'
			AND payment_status IN ('PENDING', 'FAILED')
			AND created_at <= $1
			AND id > $2
			AND NOT (payment_method = ANY($3))
		ORDER BY id
		LIMIT $4
	`, cutoff, afterID, pq.Array(skip), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) CancelStale(ctx context.Context, orderID uint, cutoff time.Time) (*Order, error) {
	var cancelled *Order
	err := r.withTx(ctx, "CancelStale", func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !o.StaleAt(cutoff) {
			return fmt.Errorf("%w: order %d is %s/%s", ErrStaleTransition, o.ID, o.Status, o.PaymentStatus)
		}

		cancelled, err = cancelLocked(ctx, tx, o)
		return err
	})
	return cancelled, err
}

func (r *repository) CancelOrder(ctx context.Context, orderID uint) (*Order, error) {
	var cancelled *Order
	err := r.withTx(ctx, "CancelOrder", func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if (o.Status != StatusPending && o.Status != StatusConfirmed) || o.PaymentStatus.Terminal() {
			return fmt.Errorf("%w: order %d is %s/%s", ErrInvalidStatus, o.ID, o.Status, o.PaymentStatus)
		}

		cancelled, err = cancelLocked(ctx, tx, o)
		return err
	})
	return cancelled, err
}

// ApplyPaymentResult records a verified gateway outcome. The payment state is
// re-checked under the row lock so a late callback cannot revive a cancelled
// or already paid order.
func (r *repository) ApplyPaymentResult(
	ctx context.Context,
	orderID uint,
	txnRef string,
	to PaymentStatus,
	providerTxnID string,
) (*Order, error) {
	var applied *Order
	err := r.withTx(ctx, "ApplyPaymentResult", func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled || !o.PaymentStatus.CanTransition(to) {
			return fmt.Errorf("%w: order %d is %s/%s", ErrStaleTransition, o.ID, o.Status, o.PaymentStatus)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET payment_status = $1, updated_at = now() WHERE id = $2
		`, to, o.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payment_attempts
			SET status = $1, provider_txn_id = NULLIF($2, ''), updated_at = now()
			WHERE txn_ref = $3
		`, payment.AttemptStatus(to), providerTxnID, txnRef); err != nil {
			return err
		}

		o.PaymentStatus = to
		applied = o
		return nil
	})
	return applied, err
}

func lockOrder(ctx context.Context, tx *sql.Tx, orderID uint) (*Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// cancelLocked moves a locked order to CANCELLED/CANCELLED and gives every
// item's quantity back to its product.
func cancelLocked(ctx context.Context, tx *sql.Tx, o *Order) (*Order, error) {
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = 'CANCELLED', payment_status = 'CANCELLED', updated_at = now()
		WHERE id = $1
	`, o.ID); err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, tx, o.ID)
	if err != nil {
		return nil, err
	}

	restore := map[uint]int{}
	for _, it := range items {
		restore[it.ProductID] += it.Quantity
	}
	for _, pid := range sortedKeys(restore) {
		if err := product.Restore(ctx, tx, pid, restore[pid]); err != nil {
			return nil, err
		}
	}

	o.Status = StatusCancelled
	o.PaymentStatus = PaymentCancelled
	o.Items = items
	return o, nil
}

func loadItems(ctx context.Context, q product.DBTX, orderID uint) ([]Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, variant_id, product_id, variant_name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.ProductID, &it.VariantName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func sortedKeys(m map[uint]int) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
