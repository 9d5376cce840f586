package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, price, is_active, created_by, created_at, updated_at`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.IsActive, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

type CreateMenuItemParams struct {
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO menu_items (name, description, price, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+menuItemColumns,
		arg.Name, arg.Description, arg.Price, arg.CreatedBy)
	return scanMenuItem(row)
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
	return scanMenuItem(row)
}

// GetActiveMenuItem is used by order creation: inactive items are not
// orderable.
func (q *Queries) GetActiveMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE id = $1 AND is_active = TRUE`, id)
	return scanMenuItem(row)
}

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE is_active = TRUE
		 ORDER BY name`)
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

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsActive    bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE menu_items
		 SET name = $2, description = $3, price = $4, is_active = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+menuItemColumns,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.IsActive)
	return scanMenuItem(row)
}

type AddMenuItemIngredientParams struct {
	MenuItemID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

func (q *Queries) AddMenuItemIngredient(ctx context.Context, arg AddMenuItemIngredientParams) (MenuItemIngredient, error) {
	var mi MenuItemIngredient
	err := q.db.QueryRow(ctx,
		`INSERT INTO menu_item_ingredients (menu_item_id, ingredient_id, quantity)
		 VALUES ($1, $2, $3)
		 RETURNING id, menu_item_id, ingredient_id, quantity`,
		arg.MenuItemID, arg.IngredientID, arg.Quantity).
		Scan(&mi.ID, &mi.MenuItemID, &mi.IngredientID, &mi.Quantity)
	return mi, err
}

func (q *Queries) DeleteMenuItemIngredients(ctx context.Context, menuItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`DELETE FROM menu_item_ingredients WHERE menu_item_id = $1`, menuItemID)
	return err
}

func (q *Queries) ListMenuItemIngredients(ctx context.Context, menuItemID uuid.UUID) ([]MenuItemIngredient, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, menu_item_id, ingredient_id, quantity
		 FROM menu_item_ingredients
		 WHERE menu_item_id = $1`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuItemIngredient
	for rows.Next() {
		var mi MenuItemIngredient
		if err := rows.Scan(&mi.ID, &mi.MenuItemID, &mi.IngredientID, &mi.Quantity); err != nil {
			return nil, err
		}
		out = append(out, mi)
	}
	return out, rows.Err()
}

type CountStopListedIngredientsParams struct {
	MenuItemID uuid.UUID
	ShiftID    uuid.UUID
}

// CountStopListedIngredients reports how many of a menu item's required
// ingredients sit on the given shift's ingredient stop list.
func (q *Queries) CountStopListedIngredients(ctx context.Context, arg CountStopListedIngredientsParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM menu_item_ingredients mi
		 JOIN ingredient_stop_list isl
		   ON isl.ingredient_id = mi.ingredient_id AND isl.shift_id = $2
		 WHERE mi.menu_item_id = $1`,
		arg.MenuItemID, arg.ShiftID).Scan(&count)
	return count, err
}
