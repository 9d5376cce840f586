package database

import (
	"context"

	"github.com/google/uuid"
)

type AddMenuStopListEntryParams struct {
	ShiftID    uuid.UUID
	MenuItemID uuid.UUID
}

// AddMenuStopListEntry inserts a stop-list row; the unique (shift_id,
// menu_item_id) constraint rejects duplicates within a shift.
func (q *Queries) AddMenuStopListEntry(ctx context.Context, arg AddMenuStopListEntryParams) (MenuStopListEntry, error) {
	var e MenuStopListEntry
	err := q.db.QueryRow(ctx,
		`INSERT INTO menu_stop_list (shift_id, menu_item_id)
		 VALUES ($1, $2)
		 RETURNING id, shift_id, menu_item_id, created_at`,
		arg.ShiftID, arg.MenuItemID).
		Scan(&e.ID, &e.ShiftID, &e.MenuItemID, &e.CreatedAt)
	return e, err
}

type RemoveMenuStopListEntryParams struct {
	ShiftID    uuid.UUID
	MenuItemID uuid.UUID
}

func (q *Queries) RemoveMenuStopListEntry(ctx context.Context, arg RemoveMenuStopListEntryParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM menu_stop_list WHERE shift_id = $1 AND menu_item_id = $2`,
		arg.ShiftID, arg.MenuItemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListMenuStopList(ctx context.Context, shiftID uuid.UUID) ([]MenuStopListEntry, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, shift_id, menu_item_id, created_at
		 FROM menu_stop_list
		 WHERE shift_id = $1
		 ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MenuStopListEntry
	for rows.Next() {
		var e MenuStopListEntry
		if err := rows.Scan(&e.ID, &e.ShiftID, &e.MenuItemID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type IsMenuItemStopListedParams struct {
	ShiftID    uuid.UUID
	MenuItemID uuid.UUID
}

func (q *Queries) IsMenuItemStopListed(ctx context.Context, arg IsMenuItemStopListedParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM menu_stop_list WHERE shift_id = $1 AND menu_item_id = $2
		 )`, arg.ShiftID, arg.MenuItemID).Scan(&exists)
	return exists, err
}

type AddIngredientStopListEntryParams struct {
	ShiftID      uuid.UUID
	IngredientID uuid.UUID
}

func (q *Queries) AddIngredientStopListEntry(ctx context.Context, arg AddIngredientStopListEntryParams) (IngredientStopListEntry, error) {
	var e IngredientStopListEntry
	err := q.db.QueryRow(ctx,
		`INSERT INTO ingredient_stop_list (shift_id, ingredient_id)
		 VALUES ($1, $2)
		 RETURNING id, shift_id, ingredient_id, created_at`,
		arg.ShiftID, arg.IngredientID).
		Scan(&e.ID, &e.ShiftID, &e.IngredientID, &e.CreatedAt)
	return e, err
}

type RemoveIngredientStopListEntryParams struct {
	ShiftID      uuid.UUID
	IngredientID uuid.UUID
}

func (q *Queries) RemoveIngredientStopListEntry(ctx context.Context, arg RemoveIngredientStopListEntryParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM ingredient_stop_list WHERE shift_id = $1 AND ingredient_id = $2`,
		arg.ShiftID, arg.IngredientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListIngredientStopList(ctx context.Context, shiftID uuid.UUID) ([]IngredientStopListEntry, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, shift_id, ingredient_id, created_at
		 FROM ingredient_stop_list
		 WHERE shift_id = $1
		 ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []IngredientStopListEntry
	for rows.Next() {
		var e IngredientStopListEntry
		if err := rows.Scan(&e.ID, &e.ShiftID, &e.IngredientID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
