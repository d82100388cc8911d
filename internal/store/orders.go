package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID          uuid.UUID
	OrderNumber string
	TableID     uuid.UUID
	Status      string
	Notes       pgtype.Text
	Total       pgtype.Numeric
	CreatedBy   pgtype.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderItem struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Name     string
	Category string
	ImageURL pgtype.Text
	Price    pgtype.Numeric
	Quantity int32
	Note     pgtype.Text
}

const orderColumns = `id, order_number, table_id, status, notes, total, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.TableID, &o.Status, &o.Notes,
		&o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetNextOrderSeq returns the next sequence number for today's orders. The
// caller formats it into the order number; a unique constraint on
// order_number catches the race where two transactions read the same MAX.
func (q *Queries) GetNextOrderSeq(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM orders
		WHERE created_at >= date_trunc('day', NOW())`).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	OrderNumber string
	TableID     uuid.UUID
	Notes       pgtype.Text
	Total       pgtype.Numeric
	CreatedBy   pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		INSERT INTO orders (order_number, table_id, notes, total, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orderColumns,
		arg.OrderNumber, arg.TableID, arg.Notes, arg.Total, arg.CreatedBy))
}

type CreateOrderItemParams struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Name     string
	Category string
	ImageURL pgtype.Text
	Price    pgtype.Numeric
	Quantity int32
	Note     pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, item_id, name, category, image_url, price, quantity, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, order_id, item_id, name, category, image_url, price, quantity, note`,
		arg.OrderID, arg.ItemID, arg.Name, arg.Category, arg.ImageURL,
		arg.Price, arg.Quantity, arg.Note).
		Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Name, &it.Category,
			&it.ImageURL, &it.Price, &it.Quantity, &it.Note)
	return it, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

type ListOrdersParams struct {
	Status    string
	TableID   pgtype.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE TRUE`
	args := []any{}

	if arg.Status != "" {
		args = append(args, arg.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if arg.TableID.Valid {
		args = append(args, arg.TableID)
		sql += fmt.Sprintf(" AND table_id = $%d", len(args))
	}
	if arg.StartDate.Valid {
		args = append(args, arg.StartDate)
		sql += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if arg.EndDate.Valid {
		args = append(args, arg.EndDate)
		sql += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	args = append(args, arg.Limit)
	sql += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, arg.Offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, item_id, name, category, image_url, price, quantity, note
		FROM order_items WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Name, &it.Category,
			&it.ImageURL, &it.Price, &it.Quantity, &it.Note); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus moves the order to Status only if it is still in
// PrevStatus; returns pgx.ErrNoRows when the status changed underneath us.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PrevStatus))
}

// CancelOrder cancels the order unless it already reached a terminal status.
// The precondition is enforced atomically in the query.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		UPDATE orders SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
		RETURNING `+orderColumns, id))
}

type UpdateOrderTotalsParams struct {
	ID    uuid.UUID
	Notes pgtype.Text
	Total pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, `
		UPDATE orders SET notes = $2, total = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Notes, arg.Total))
}
