package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateSupplierParams struct {
	Name  string
	Phone pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	var s Supplier
	err := q.db.QueryRow(ctx,
		`INSERT INTO suppliers (name, phone)
		 VALUES ($1, $2)
		 RETURNING id, name, phone, created_at`,
		arg.Name, arg.Phone).Scan(&s.ID, &s.Name, &s.Phone, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetSupplier(ctx context.Context, id uuid.UUID) (Supplier, error) {
	var s Supplier
	err := q.db.QueryRow(ctx,
		`SELECT id, name, phone, created_at FROM suppliers WHERE id = $1`,
		id).Scan(&s.ID, &s.Name, &s.Phone, &s.CreatedAt)
	return s, err
}

func (q *Queries) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, phone, created_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}
