package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, unit, current_price, in_stock, last_delivery_at, created_at, updated_at`

func scanIngredient(row interface{ Scan(dest ...any) error }) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.CurrentPrice, &i.InStock, &i.LastDeliveryAt, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type CreateIngredientParams struct {
	Name         string
	Unit         string
	CurrentPrice pgtype.Numeric
	InStock      pgtype.Numeric
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO ingredients (name, unit, current_price, in_stock)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+ingredientColumns,
		arg.Name, arg.Unit, arg.CurrentPrice, arg.InStock)
	return scanIngredient(row)
}

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id)
	return scanIngredient(row)
}

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, i)
	}
	return ingredients, rows.Err()
}

type AddIngredientStockParams struct {
	ID           uuid.UUID
	Quantity     pgtype.Numeric
	PricePerUnit pgtype.Numeric
}

// AddIngredientStock increments stock and overwrites the current price in a
// single statement, so concurrent deliveries on the same ingredient
// serialize on the row without a prior read.
func (q *Queries) AddIngredientStock(ctx context.Context, arg AddIngredientStockParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE ingredients
		 SET in_stock = in_stock + $2,
		     current_price = $3,
		     last_delivery_at = now(),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+ingredientColumns,
		arg.ID, arg.Quantity, arg.PricePerUnit)
	return scanIngredient(row)
}

type DeductIngredientStockParams struct {
	ID       uuid.UUID
	Quantity pgtype.Numeric
}

// DeductIngredientStock decrements stock only when enough is on hand; the
// caller distinguishes "not found" from "insufficient" by fetching the row
// when no rows come back.
func (q *Queries) DeductIngredientStock(ctx context.Context, arg DeductIngredientStockParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE ingredients
		 SET in_stock = in_stock - $2, updated_at = now()
		 WHERE id = $1 AND in_stock >= $2
		 RETURNING `+ingredientColumns,
		arg.ID, arg.Quantity)
	return scanIngredient(row)
}
