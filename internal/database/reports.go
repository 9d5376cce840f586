package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetSalesSummaryParams struct {
	PaidAt   time.Time
	PaidAt_2 time.Time
}

type GetSalesSummaryRow struct {
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetSalesSummary(ctx context.Context, arg GetSalesSummaryParams) (GetSalesSummaryRow, error) {
	var row GetSalesSummaryRow
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_price), 0)
		 FROM orders
		 WHERE status = 'PAID' AND paid_at >= $1 AND paid_at < $2`,
		arg.PaidAt, arg.PaidAt_2).Scan(&row.OrderCount, &row.TotalRevenue)
	return row, err
}

type GetPaymentSummaryParams struct {
	PaidAt   time.Time
	PaidAt_2 time.Time
}

type GetPaymentSummaryRow struct {
	PaymentType      string
	TransactionCount int64
	TotalAmount      pgtype.Numeric
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT payment_type, COUNT(*), COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE paid_at >= $1 AND paid_at < $2
		 GROUP BY payment_type
		 ORDER BY payment_type`,
		arg.PaidAt, arg.PaidAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetPaymentSummaryRow
	for rows.Next() {
		var r GetPaymentSummaryRow
		if err := rows.Scan(&r.PaymentType, &r.TransactionCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetWaiterSalesParams struct {
	PaidAt   time.Time
	PaidAt_2 time.Time
}

type GetWaiterSalesRow struct {
	WaiterID     uuid.UUID
	WaiterName   string
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetWaiterSales(ctx context.Context, arg GetWaiterSalesParams) ([]GetWaiterSalesRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT o.waiter_id, u.full_name, COUNT(*), COALESCE(SUM(o.total_price), 0)
		 FROM orders o
		 JOIN users u ON u.id = o.waiter_id
		 WHERE o.status = 'PAID' AND o.paid_at >= $1 AND o.paid_at < $2
		 GROUP BY o.waiter_id, u.full_name
		 ORDER BY COALESCE(SUM(o.total_price), 0) DESC`,
		arg.PaidAt, arg.PaidAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetWaiterSalesRow
	for rows.Next() {
		var r GetWaiterSalesRow
		if err := rows.Scan(&r.WaiterID, &r.WaiterName, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetTopMenuItemsParams struct {
	PaidAt   time.Time
	PaidAt_2 time.Time
	Limit    int32
}

type GetTopMenuItemsRow struct {
	MenuItemID   uuid.UUID
	MenuItemName string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetTopMenuItems(ctx context.Context, arg GetTopMenuItemsParams) ([]GetTopMenuItemsRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT oi.menu_item_id, m.name,
		        COALESCE(SUM(oi.quantity), 0)::bigint,
		        COALESCE(SUM(oi.quantity * oi.unit_price), 0)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 JOIN menu_items m ON m.id = oi.menu_item_id
		 WHERE o.status = 'PAID' AND o.paid_at >= $1 AND o.paid_at < $2
		 GROUP BY oi.menu_item_id, m.name
		 ORDER BY COALESCE(SUM(oi.quantity), 0) DESC
		 LIMIT $3`,
		arg.PaidAt, arg.PaidAt_2, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetTopMenuItemsRow
	for rows.Next() {
		var r GetTopMenuItemsRow
		if err := rows.Scan(&r.MenuItemID, &r.MenuItemName, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetInventoryMovementParams struct {
	CreatedAt   time.Time
	CreatedAt_2 time.Time
}

type GetInventoryMovementRow struct {
	IngredientID  uuid.UUID
	Name          string
	Unit          string
	DeliveredQty  pgtype.Numeric
	WrittenOffQty pgtype.Numeric
	InStock       pgtype.Numeric
}

func (q *Queries) GetInventoryMovement(ctx context.Context, arg GetInventoryMovementParams) ([]GetInventoryMovementRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT i.id, i.name, i.unit,
		        COALESCE(d.qty, 0), COALESCE(w.qty, 0), i.in_stock
		 FROM ingredients i
		 LEFT JOIN (
		     SELECT ingredient_id, SUM(quantity) AS qty
		     FROM deliveries
		     WHERE delivered_at >= $1 AND delivered_at < $2
		     GROUP BY ingredient_id
		 ) d ON d.ingredient_id = i.id
		 LEFT JOIN (
		     SELECT ingredient_id, SUM(quantity) AS qty
		     FROM write_offs
		     WHERE created_at >= $1 AND created_at < $2
		     GROUP BY ingredient_id
		 ) w ON w.ingredient_id = i.id
		 ORDER BY i.name`,
		arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetInventoryMovementRow
	for rows.Next() {
		var r GetInventoryMovementRow
		if err := rows.Scan(&r.IngredientID, &r.Name, &r.Unit, &r.DeliveredQty, &r.WrittenOffQty, &r.InStock); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type GetShiftSummariesParams struct {
	StartedAt   time.Time
	StartedAt_2 time.Time
}

type GetShiftSummariesRow struct {
	ShiftID      uuid.UUID
	StartedAt    time.Time
	EndedAt      pgtype.Timestamptz
	ManagerName  string
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetShiftSummaries(ctx context.Context, arg GetShiftSummariesParams) ([]GetShiftSummariesRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT s.id, s.started_at, s.ended_at, u.full_name,
		        COUNT(o.id) FILTER (WHERE o.status = 'PAID'),
		        COALESCE(SUM(o.total_price) FILTER (WHERE o.status = 'PAID'), 0)
		 FROM shifts s
		 JOIN users u ON u.id = s.manager_id
		 LEFT JOIN orders o ON o.shift_id = s.id
		 WHERE s.started_at >= $1 AND s.started_at < $2
		 GROUP BY s.id, s.started_at, s.ended_at, u.full_name
		 ORDER BY s.started_at DESC`,
		arg.StartedAt, arg.StartedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetShiftSummariesRow
	for rows.Next() {
		var r GetShiftSummariesRow
		if err := rows.Scan(&r.ShiftID, &r.StartedAt, &r.EndedAt, &r.ManagerName, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
