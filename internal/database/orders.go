package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_number, status, shift_id, waiter_id, cashier_id, total_price, created_at, paid_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TableNumber, &o.Status, &o.ShiftID, &o.WaiterID, &o.CashierID, &o.TotalPrice, &o.CreatedAt, &o.PaidAt)
	return o, err
}

type CreateOrderParams struct {
	TableNumber string
	ShiftID     uuid.UUID
	WaiterID    uuid.UUID
	TotalPrice  pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO orders (table_number, shift_id, waiter_id, total_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+orderColumns,
		arg.TableNumber, arg.ShiftID, arg.WaiterID, arg.TotalPrice)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row for the duration of the transaction.
// FOR NO KEY UPDATE still allows concurrent inserts into payments that
// reference the order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanOrder(row)
}

func (q *Queries) ListOrdersByShift(ctx context.Context, shiftID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE shift_id = $1 ORDER BY created_at DESC`, shiftID)
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

// CancelOrder flips an OPEN order to CANCELLED. The status predicate makes
// the transition atomic: a paid or already-cancelled order matches zero rows.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET status = 'CANCELLED'
		 WHERE id = $1 AND status = 'OPEN'
		 RETURNING `+orderColumns, id)
	return scanOrder(row)
}

type MarkOrderPaidParams struct {
	ID        uuid.UUID
	CashierID uuid.UUID
}

func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET status = 'PAID', cashier_id = $2, paid_at = now()
		 WHERE id = $1 AND status = 'OPEN'
		 RETURNING `+orderColumns,
		arg.ID, arg.CashierID)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, order_id, menu_item_id, quantity, unit_price`,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.UnitPrice)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.UnitPrice)
	return i, err
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, menu_item_id, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
