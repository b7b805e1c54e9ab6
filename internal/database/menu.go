package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, item, price, availability, category, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Item, &m.Price, &m.Availability, &m.Category, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collectMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	defer rows.Close()
	var result []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items ORDER BY category, item`)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE availability = true ORDER BY category, item`)
	if err != nil {
		return nil, err
	}
	return collectMenuItems(rows)
}

func (q *Queries) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
	return scanMenuItem(row)
}

func (q *Queries) MenuItemIDExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM menu_items WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

type CreateMenuItemParams struct {
	ID           int64
	Item         string
	Price        pgtype.Numeric
	Availability bool
	Category     string
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (id, item, price, availability, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+menuItemColumns,
		arg.ID, arg.Item, arg.Price, arg.Availability, arg.Category)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
	ID           int64
	Item         string
	Price        pgtype.Numeric
	Availability bool
	Category     string
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menu_items
		SET item = $2, price = $3, availability = $4, category = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+menuItemColumns,
		arg.ID, arg.Item, arg.Price, arg.Availability, arg.Category)
	return scanMenuItem(row)
}

func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx,
		`DELETE FROM menu_items WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

func (q *Queries) CountMenuItems(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&count)
	return count, err
}
