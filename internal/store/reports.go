package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Report queries aggregate completed orders only; cancelled and in-flight
// orders never count toward revenue.

type DateRangeParams struct {
	Start pgtype.Timestamptz
	End   pgtype.Timestamptz
}

type DailySalesRow struct {
	SaleDate     pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg DateRangeParams) ([]DailySalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT created_at::date AS sale_date, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE status = 'COMPLETED' AND created_at >= $1 AND created_at < $2
		GROUP BY sale_date
		ORDER BY sale_date`, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySalesRow
	for rows.Next() {
		var r DailySalesRow
		if err := rows.Scan(&r.SaleDate, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type ItemSalesRow struct {
	ItemID       uuid.UUID
	ItemName     string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetItemSales(ctx context.Context, arg DateRangeParams) ([]ItemSalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.item_id, MAX(oi.name), SUM(oi.quantity), COALESCE(SUM(oi.price * oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'COMPLETED' AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY oi.item_id
		ORDER BY SUM(oi.quantity) DESC`, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemSalesRow
	for rows.Next() {
		var r ItemSalesRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type PaymentSummaryRow struct {
	PaymentMethod    string
	TransactionCount int64
	TotalAmount      pgtype.Numeric
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg DateRangeParams) ([]PaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(amount), 0)
		FROM payments
		WHERE status = 'COMPLETED' AND processed_at >= $1 AND processed_at < $2
		GROUP BY payment_method
		ORDER BY payment_method`, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentSummaryRow
	for rows.Next() {
		var r PaymentSummaryRow
		if err := rows.Scan(&r.PaymentMethod, &r.TransactionCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
