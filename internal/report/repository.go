package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const topProductsLimit = 5

type Repository interface {
	MonthlySummary(ctx context.Context, start, end time.Time) (*MonthlyReport, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) MonthlySummary(ctx context.Context, start, end time.Time) (*MonthlyReport, error) {
	rep := &MonthlyReport{PeriodStart: start, PeriodEnd: end}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE payment_status = 'PAID'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COALESCE(SUM(total_amount) FILTER (
				WHERE payment_status = 'PAID'
				OR (payment_method = 'COD' AND status = 'DELIVERED')
			), 0)::NUMERIC
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
	`, start, end).Scan(&rep.OrderCount, &rep.PaidCount, &rep.CancelledCount, &rep.Revenue)
	if err != nil {
		return nil, fmt.Errorf("monthly order totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, SUM(oi.quantity), SUM(oi.quantity * oi.unit_price)::NUMERIC
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.created_at >= $1 AND o.created_at < $2
		AND o.status <> 'CANCELLED'
		GROUP BY p.id, p.name
		ORDER BY SUM(oi.quantity) DESC, p.id
		LIMIT $3
	`, start, end, topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("monthly top products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Quantity, &ps.Revenue); err != nil {
			return nil, err
		}
		rep.TopProducts = append(rep.TopProducts, ps)
	}
	return rep, rows.Err()
}
