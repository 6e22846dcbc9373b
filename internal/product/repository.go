package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so stock changes can join the
// caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]*Product, int64, error)
	GetByID(ctx context.Context, id uint) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]*Product, int64, error) {
	where := ""
	if opts.OnlyInStock {
		where = "WHERE status = 'IN_STOCK'"
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (opts.Page - 1) * opts.Limit
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, quantity, status, created_at, updated_at
		FROM products `+where+`
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, opts.Limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		products []*Product
		ids      []int64
		byID     = map[uint]*Product{}
	)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, &p)
		ids = append(ids, int64(p.ID))
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) == 0 {
		return products, total, nil
	}

	vrows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, price
		FROM variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, id
	`, pq.Array(ids))
	if err != nil {
		return nil, 0, err
	}
	defer vrows.Close()

	for vrows.Next() {
		var v Variant
		if err := vrows.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price); err != nil {
			return nil, 0, err
		}
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, &v)
		}
	}

	return products, total, vrows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, quantity, status, created_at, updated_at
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Quantity, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, price FROM variants WHERE product_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price); err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, &v)
	}
	return &p, rows.Err()
}

// LockForCheckout loads the requested variants and row-locks their products
// in id order.
func LockForCheckout(ctx context.Context, q DBTX, variantIDs []uint) (map[uint]*CheckoutVariant, error) {
	ids := make([]int64, len(variantIDs))
	for i, id := range variantIDs {
		ids[i] = int64(id)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT v.id, v.product_id, v.name, v.price, p.name, p.quantity, p.status
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)
		ORDER BY p.id
		FOR UPDATE OF p
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint]*CheckoutVariant, len(variantIDs))
	for rows.Next() {
		var cv CheckoutVariant
		if err := rows.Scan(
			&cv.ID, &cv.ProductID, &cv.Name, &cv.Price,
			&cv.ProductName, &cv.ProductQuantity, &cv.ProductStatus,
		); err != nil {
			return nil, err
		}
		out[cv.ID] = &cv
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range variantIDs {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrVariantNotFound, id)
		}
	}
	return out, nil
}

// Reserve takes qty units from a product, marking it SOLD_OUT when it hits zero.
func Reserve(ctx context.Context, q DBTX, productID uint, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1,
			status = CASE WHEN quantity - $1 = 0 THEN 'SOLD_OUT' ELSE status END,
			updated_at = now()
		WHERE id = $2 AND quantity >= $1
	`, qty, productID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: product %d", ErrOutOfStock, productID)
	}
	return nil
}

// Restore puts qty units back and flips SOLD_OUT to IN_STOCK once stock is positive.
func Restore(ctx context.Context, q DBTX, productID uint, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity + $1,
			status = CASE WHEN status = 'SOLD_OUT' AND quantity + $1 > 0 THEN 'IN_STOCK' ELSE status END,
			updated_at = now()
		WHERE id = $2
	`, qty, productID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	return nil
}
