package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const writeOffColumns = `id, ingredient_id, quantity, reason, comment, shift_id, created_by, created_at`

func scanWriteOff(row interface{ Scan(dest ...any) error }) (WriteOff, error) {
	var w WriteOff
	err := row.Scan(&w.ID, &w.IngredientID, &w.Quantity, &w.Reason, &w.Comment, &w.ShiftID, &w.CreatedBy, &w.CreatedAt)
	return w, err
}

type CreateWriteOffParams struct {
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	Reason       string
	Comment      pgtype.Text
	ShiftID      uuid.UUID
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateWriteOff(ctx context.Context, arg CreateWriteOffParams) (WriteOff, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO write_offs (ingredient_id, quantity, reason, comment, shift_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+writeOffColumns,
		arg.IngredientID, arg.Quantity, arg.Reason, arg.Comment, arg.ShiftID, arg.CreatedBy)
	return scanWriteOff(row)
}

func (q *Queries) ListWriteOffs(ctx context.Context) ([]WriteOff, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+writeOffColumns+` FROM write_offs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var writeOffs []WriteOff
	for rows.Next() {
		w, err := scanWriteOff(rows)
		if err != nil {
			return nil, err
		}
		writeOffs = append(writeOffs, w)
	}
	return writeOffs, rows.Err()
}
