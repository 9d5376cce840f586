package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const deliveryColumns = `id, ingredient_id, supplier_id, quantity, price_per_unit, delivered_at, created_by`

func scanDelivery(row interface{ Scan(dest ...any) error }) (Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.IngredientID, &d.SupplierID, &d.Quantity, &d.PricePerUnit, &d.DeliveredAt, &d.CreatedBy)
	return d, err
}

type CreateDeliveryParams struct {
	IngredientID uuid.UUID
	SupplierID   uuid.UUID
	Quantity     pgtype.Numeric
	PricePerUnit pgtype.Numeric
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (Delivery, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO deliveries (ingredient_id, supplier_id, quantity, price_per_unit, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+deliveryColumns,
		arg.IngredientID, arg.SupplierID, arg.Quantity, arg.PricePerUnit, arg.CreatedBy)
	return scanDelivery(row)
}

func (q *Queries) ListDeliveries(ctx context.Context) ([]Delivery, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries ORDER BY delivered_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
