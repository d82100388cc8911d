package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Payment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	PaymentMethod  string
	Amount         pgtype.Numeric
	AmountReceived pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	Status         string
	ProcessedBy    uuid.UUID
	ProcessedAt    time.Time
}

const paymentColumns = `id, order_id, payment_method, amount, amount_received, change_amount, status, processed_by, processed_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount,
		&p.AmountReceived, &p.ChangeAmount, &p.Status, &p.ProcessedBy, &p.ProcessedAt)
	return p, err
}

type CreatePaymentParams struct {
	OrderID        uuid.UUID
	PaymentMethod  string
	Amount         pgtype.Numeric
	AmountReceived pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	ProcessedBy    uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, `
		INSERT INTO payments (order_id, payment_method, amount, amount_received, change_amount, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		arg.OrderID, arg.PaymentMethod, arg.Amount, arg.AmountReceived,
		arg.ChangeAmount, arg.ProcessedBy))
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY processed_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
