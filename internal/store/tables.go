package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Table is a physical café table. QRCode is the token embedded in the QR
// sticker on the table; customers resolve it to a table without logging in.
type Table struct {
	ID        uuid.UUID
	Number    int32
	QRCode    uuid.UUID
	IsActive  bool
	CreatedAt time.Time
}

const tableColumns = `id, number, qr_code, is_active, created_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.QRCode, &t.IsActive, &t.CreatedAt)
	return t, err
}

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tableColumns+` FROM cafe_tables WHERE is_active ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM cafe_tables WHERE id = $1 AND is_active`, id))
}

func (q *Queries) GetTableByQRCode(ctx context.Context, code uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM cafe_tables WHERE qr_code = $1 AND is_active`, code))
}

func (q *Queries) CreateTable(ctx context.Context, number int32, qrCode uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, `
		INSERT INTO cafe_tables (number, qr_code) VALUES ($1, $2)
		RETURNING `+tableColumns,
		number, qrCode))
}

// RotateTableQRCode replaces the QR token, invalidating printed stickers.
func (q *Queries) RotateTableQRCode(ctx context.Context, id uuid.UUID, qrCode uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, `
		UPDATE cafe_tables SET qr_code = $2
		WHERE id = $1 AND is_active
		RETURNING `+tableColumns,
		id, qrCode))
}

func (q *Queries) SoftDeleteTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE cafe_tables SET is_active = FALSE WHERE id = $1 AND is_active RETURNING id`, id).
		Scan(&out)
	return out, err
}
