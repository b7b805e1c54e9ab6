package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, student_id, order_timestamp, required_time, final_price, menu_items, pickup_or_delivery, delivery_room, notes, status`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.StudentID, &o.OrderTimestamp, &o.RequiredTime, &o.FinalPrice,
		&o.MenuItems, &o.PickupOrDelivery, &o.DeliveryRoom, &o.Notes, &o.Status)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

type GetOrderParams struct {
	ID        uuid.UUID
	StudentID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND student_id = $2`,
		arg.ID, arg.StudentID)
	return scanOrder(row)
}

func (q *Queries) ListOrdersByStudent(ctx context.Context, studentID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE student_id = $1 ORDER BY order_timestamp DESC`,
		studentID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type CreateOrderParams struct {
	StudentID        uuid.UUID
	RequiredTime     pgtype.Timestamptz
	FinalPrice       pgtype.Numeric
	MenuItems        []byte
	PickupOrDelivery string
	DeliveryRoom     string
	Notes            string
	Status           string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (student_id, required_time, final_price, menu_items, pickup_or_delivery, delivery_room, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderColumns,
		arg.StudentID, arg.RequiredTime, arg.FinalPrice, arg.MenuItems,
		arg.PickupOrDelivery, arg.DeliveryRoom, arg.Notes, arg.Status)
	return scanOrder(row)
}

// UpdateOrderParams overwrites every mutable field; order_timestamp is
// deliberately not part of the statement.
type UpdateOrderParams struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	RequiredTime     pgtype.Timestamptz
	FinalPrice       pgtype.Numeric
	MenuItems        []byte
	PickupOrDelivery string
	DeliveryRoom     string
	Notes            string
	Status           string
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET required_time = $3, final_price = $4, menu_items = $5, pickup_or_delivery = $6,
		    delivery_room = $7, notes = $8, status = $9
		WHERE id = $1 AND student_id = $2
		RETURNING `+orderColumns,
		arg.ID, arg.StudentID, arg.RequiredTime, arg.FinalPrice, arg.MenuItems,
		arg.PickupOrDelivery, arg.DeliveryRoom, arg.Notes, arg.Status)
	return scanOrder(row)
}

// UpdateOrderStatusParams writes status only when the row still holds the
// expected previous status, so concurrent one-click changes surface as
// pgx.ErrNoRows instead of silently clobbering each other.
type UpdateOrderStatusParams struct {
	ID             uuid.UUID
	StudentID      uuid.UUID
	Status         string
	ExpectedStatus string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $3
		WHERE id = $1 AND student_id = $2 AND status = $4
		RETURNING `+orderColumns,
		arg.ID, arg.StudentID, arg.Status, arg.ExpectedStatus)
	return scanOrder(row)
}

type CountOrdersByStatusRow struct {
	Status string
	Count  int64
}

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []CountOrdersByStatusRow
	for rows.Next() {
		var r CountOrdersByStatusRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
