package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
	IsActive  bool
	CreatedAt time.Time
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, sort_order, is_active, created_at
		FROM categories WHERE is_active
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

type CreateCategoryParams struct {
	Name      string
	SortOrder int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, `
		INSERT INTO categories (name, sort_order) VALUES ($1, $2)
		RETURNING id, name, sort_order, is_active, created_at`,
		arg.Name, arg.SortOrder))
}

type UpdateCategoryParams struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, `
		UPDATE categories SET name = $2, sort_order = $3
		WHERE id = $1 AND is_active
		RETURNING id, name, sort_order, is_active, created_at`,
		arg.ID, arg.Name, arg.SortOrder))
}

func (q *Queries) SoftDeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE categories SET is_active = FALSE WHERE id = $1 AND is_active RETURNING id`, id).
		Scan(&out)
	return out, err
}

type MenuItem struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	IsAvailable bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const menuItemColumns = `id, category_id, name, price, image_url, is_available, is_active, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.ImageURL,
		&m.IsAvailable, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE is_active ORDER BY name`)
}

// ListAvailableMenuItems is the public customer-facing menu: active and
// currently available items only.
func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItem, error) {
	return q.listMenuItems(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE is_active AND is_available ORDER BY name`)
}

func (q *Queries) listMenuItems(ctx context.Context, sql string) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// MenuItemForOrder is the snapshot the order service reads when validating a
// submitted line: current price plus the category name for the line snapshot.
type MenuItemForOrder struct {
	ID           uuid.UUID
	Name         string
	Price        pgtype.Numeric
	CategoryName string
	ImageURL     pgtype.Text
	IsAvailable  bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (MenuItemForOrder, error) {
	var m MenuItemForOrder
	err := q.db.QueryRow(ctx, `
		SELECT mi.id, mi.name, mi.price, c.name, mi.image_url, mi.is_available
		FROM menu_items mi
		JOIN categories c ON c.id = mi.category_id
		WHERE mi.id = $1 AND mi.is_active`, id).
		Scan(&m.ID, &m.Name, &m.Price, &m.CategoryName, &m.ImageURL, &m.IsAvailable)
	return m, err
}

type CreateMenuItemParams struct {
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		INSERT INTO menu_items (category_id, name, price, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+menuItemColumns,
		arg.CategoryID, arg.Name, arg.Price, arg.ImageURL, arg.IsAvailable))
}

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	IsAvailable bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		UPDATE menu_items
		SET category_id = $2, name = $3, price = $4, image_url = $5,
		    is_available = $6, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING `+menuItemColumns,
		arg.ID, arg.CategoryID, arg.Name, arg.Price, arg.ImageURL, arg.IsAvailable))
}

func (q *Queries) SetMenuItemAvailability(ctx context.Context, id uuid.UUID, available bool) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		UPDATE menu_items SET is_available = $2, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING `+menuItemColumns,
		id, available))
}

func (q *Queries) SoftDeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE menu_items SET is_active = FALSE WHERE id = $1 AND is_active RETURNING id`, id).
		Scan(&out)
	return out, err
}
