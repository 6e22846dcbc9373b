package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "name", "quantity", "status", "created_at", "updated_at"}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("WithVariants", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE status = 'IN_STOCK'`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(`(?s)SELECT id, name, quantity, status, created_at, updated_at\s+FROM products WHERE status = 'IN_STOCK'.*LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 10).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow(1, "Áo thun", 5, "IN_STOCK", now, now).
				AddRow(2, "Quần jean", 1, "IN_STOCK", now, now))
		mock.ExpectQuery(`FROM variants\s+WHERE product_id = ANY\(\$1\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "price"}).
				AddRow(11, 1, "Size M", 150000).
				AddRow(12, 1, "Size L", 160000).
				AddRow(21, 2, "32", 450000))

		items, total, err := repo.List(ctx, ListOptions{Limit: 10, Page: 2, OnlyInStock: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		assert.Len(t, items[0].Variants, 2)
		assert.Equal(t, int64(450000), items[1].Variants[0].Price)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`FROM products`).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows(productColumns))

		items, total, err := repo.List(ctx, ListOptions{Limit: 20, Page: 1})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)
	})

	t.Run("CountError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("db error"))

		_, _, err := repo.List(ctx, ListOptions{Limit: 20, Page: 1})
		assert.Error(t, err)
	})
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`FROM products WHERE id = \$1`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows(productColumns).AddRow(1, "Áo thun", 0, "SOLD_OUT", now, now))
		mock.ExpectQuery(`FROM variants WHERE product_id = \$1`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "price"}).AddRow(11, 1, "Size M", 150000))

		p, err := repo.GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, StatusSoldOut, p.Status)
		assert.Len(t, p.Variants, 1)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`FROM products WHERE id = \$1`).
			WithArgs(uint(9)).
			WillReturnRows(sqlmock.NewRows(productColumns))

		_, err := repo.GetByID(context.Background(), 9)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestLockForCheckout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "product_id", "name", "price", "name", "quantity", "status"}

	t.Run("AllFound", func(t *testing.T) {
		mock.ExpectQuery(`(?s)FROM variants v\s+JOIN products p.*FOR UPDATE OF p`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(11, 1, "Size M", 150000, "Áo thun", 5, "IN_STOCK").
				AddRow(21, 2, "32", 450000, "Quần jean", 1, "IN_STOCK"))

		got, err := LockForCheckout(context.Background(), db, []uint{11, 21})
		require.NoError(t, err)
		assert.Equal(t, uint(1), got[11].ProductID)
		assert.Equal(t, 1, got[21].ProductQuantity)
	})

	t.Run("MissingVariant", func(t *testing.T) {
		mock.ExpectQuery(`FROM variants v`).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(11, 1, "Size M", 150000, "Áo thun", 5, "IN_STOCK"))

		_, err := LockForCheckout(context.Background(), db, []uint{11, 99})
		assert.ErrorIs(t, err, ErrVariantNotFound)
	})
}

func TestReserve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE products\s+SET quantity = quantity - \$1`).
			WithArgs(2, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, Reserve(context.Background(), db, 1, 2))
	})

	t.Run("Insufficient", func(t *testing.T) {
		mock.ExpectExec(`UPDATE products\s+SET quantity = quantity - \$1`).
			WithArgs(6, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, Reserve(context.Background(), db, 1, 6), ErrOutOfStock)
	})
}

func TestRestore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("FlipsSoldOut", func(t *testing.T) {
		mock.ExpectExec(`(?s)SET quantity = quantity \+ \$1,\s+status = CASE WHEN status = 'SOLD_OUT' AND quantity \+ \$1 > 0 THEN 'IN_STOCK'`).
			WithArgs(3, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, Restore(context.Background(), db, 1, 3))
	})

	t.Run("MissingProduct", func(t *testing.T) {
		mock.ExpectExec(`UPDATE products`).
			WithArgs(3, uint(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, Restore(context.Background(), db, 404, 3), ErrProductNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
