package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
)

// Errors returned by the shift service.
var (
	ErrShiftAlreadyOpen   = errors.New("a shift is already open")
	ErrShiftNotActive     = errors.New("shift is not active")
	ErrNoActiveShift      = errors.New("no active shift")
	ErrEmptyWaiters       = errors.New("at least one waiter is required")
	ErrDuplicateStaff     = errors.New("duplicate staff member in roster")
	ErrStaffNotFound      = errors.New("staff member not found, inactive, or role mismatch")
	ErrInvalidStaffID     = errors.New("invalid staff ID")
	ErrAlreadyStopListed  = errors.New("already on the stop list")
	ErrNotStopListed      = errors.New("not on the stop list")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// ShiftStore defines the DB methods needed by the shift service.
// Satisfied by *database.Queries (and its WithTx variant).
type ShiftStore interface {
	GetActiveUserWithRole(ctx context.Context, id uuid.UUID, role string) (database.User, error)
	CreateShift(ctx context.Context, managerID uuid.UUID) (database.Shift, error)
	GetActiveShiftForUpdate(ctx context.Context) (database.Shift, error)
	CloseShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	AddShiftStaff(ctx context.Context, arg database.AddShiftStaffParams) (database.ShiftStaff, error)
	DeleteShiftStaff(ctx context.Context, shiftID uuid.UUID) error
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	AddMenuStopListEntry(ctx context.Context, arg database.AddMenuStopListEntryParams) (database.MenuStopListEntry, error)
	RemoveMenuStopListEntry(ctx context.Context, arg database.RemoveMenuStopListEntryParams) (int64, error)
	AddIngredientStopListEntry(ctx context.Context, arg database.AddIngredientStopListEntryParams) (database.IngredientStopListEntry, error)
	RemoveIngredientStopListEntry(ctx context.Context, arg database.RemoveIngredientStopListEntryParams) (int64, error)
}

// NewShiftStore creates a ShiftStore from a DBTX (pool or tx).
type NewShiftStore func(db database.DBTX) ShiftStore

// RosterRequest names the staff for a shift: exactly one cashier and at
// least one waiter, all by ID.
type RosterRequest struct {
	CashierID string
	WaiterIDs []string
}

// ShiftResult is a shift with its staff rows.
type ShiftResult struct {
	Shift database.Shift
	Staff []database.ShiftStaff
}

// ShiftService handles shift lifecycle and stop-list business logic.
type ShiftService struct {
	pool     TxBeginner
	newStore NewShiftStore
}

// NewShiftService creates a new ShiftService.
func NewShiftService(pool TxBeginner, newStore NewShiftStore) *ShiftService {
	return &ShiftService{pool: pool, newStore: newStore}
}

// rosterEntry is a validated staff member ready for insertion.
type rosterEntry struct {
	userID uuid.UUID
	role   string
}

// Open starts a new shift with the given roster. Only one shift may be
// active at a time; the partial unique index on shifts(is_active) makes the
// database the arbiter, so a losing racer surfaces as ErrShiftAlreadyOpen
// rather than a double-open. No retry: retrying would hit the same wall.
func (s *ShiftService) Open(ctx context.Context, managerID uuid.UUID, roster RosterRequest) (*ShiftResult, error) {
	entries, err := parseRoster(roster)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := validateRoster(ctx, store, entries); err != nil {
		return nil, err
	}

	shift, err := store.CreateShift(ctx, managerID)
	if err != nil {
		if isUniqueViolation(err, "shifts_one_active") {
			return nil, ErrShiftAlreadyOpen
		}
		return nil, fmt.Errorf("create shift: %w", err)
	}

	staff, err := insertRoster(ctx, store, shift.ID, entries)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &ShiftResult{Shift: shift, Staff: staff}, nil
}

// ReplaceStaff swaps out the entire roster of the active shift. The shift
// row is locked FOR UPDATE so the delete-then-insert cannot interleave with
// a concurrent replace or close.
func (s *ShiftService) ReplaceStaff(ctx context.Context, shiftID uuid.UUID, roster RosterRequest) (*ShiftResult, error) {
	entries, err := parseRoster(roster)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetActiveShiftForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotActive
		}
		return nil, fmt.Errorf("get active shift: %w", err)
	}
	if shift.ID != shiftID {
		return nil, ErrShiftNotActive
	}

	if err := validateRoster(ctx, store, entries); err != nil {
		return nil, err
	}

	if err := store.DeleteShiftStaff(ctx, shift.ID); err != nil {
		return nil, fmt.Errorf("delete shift staff: %w", err)
	}

	staff, err := insertRoster(ctx, store, shift.ID, entries)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &ShiftResult{Shift: shift, Staff: staff}, nil
}

// Close ends the shift. The status predicate in the UPDATE makes the
// transition atomic: zero rows means the shift was not active (or never
// existed). Open orders are left as they are.
func (s *ShiftService) Close(ctx context.Context, shiftID uuid.UUID) (database.Shift, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Shift{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.CloseShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Shift{}, ErrShiftNotActive
		}
		return database.Shift{}, fmt.Errorf("close shift: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Shift{}, fmt.Errorf("commit tx: %w", err)
	}

	return shift, nil
}

// AddMenuStopItem puts a menu item on the active shift's stop list. The
// shift row is locked so the entry cannot land on a shift that is closing
// concurrently.
func (s *ShiftService) AddMenuStopItem(ctx context.Context, menuItemID uuid.UUID) (database.MenuStopListEntry, error) {
	var entry database.MenuStopListEntry

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return entry, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetActiveShiftForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry, ErrNoActiveShift
		}
		return entry, fmt.Errorf("get active shift: %w", err)
	}

	if _, err := store.GetMenuItem(ctx, menuItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry, ErrMenuItemNotFound
		}
		return entry, fmt.Errorf("get menu item: %w", err)
	}

	entry, err = store.AddMenuStopListEntry(ctx, database.AddMenuStopListEntryParams{
		ShiftID:    shift.ID,
		MenuItemID: menuItemID,
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return database.MenuStopListEntry{}, ErrAlreadyStopListed
		}
		return database.MenuStopListEntry{}, fmt.Errorf("add menu stop list entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuStopListEntry{}, fmt.Errorf("commit tx: %w", err)
	}

	return entry, nil
}

// RemoveMenuStopItem takes a menu item off the active shift's stop list.
func (s *ShiftService) RemoveMenuStopItem(ctx context.Context, menuItemID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetActiveShiftForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveShift
		}
		return fmt.Errorf("get active shift: %w", err)
	}

	deleted, err := store.RemoveMenuStopListEntry(ctx, database.RemoveMenuStopListEntryParams{
		ShiftID:    shift.ID,
		MenuItemID: menuItemID,
	})
	if err != nil {
		return fmt.Errorf("remove menu stop list entry: %w", err)
	}
	if deleted == 0 {
		return ErrNotStopListed
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// AddIngredientStopItem puts an ingredient on the active shift's stop list.
// Orders containing any menu item that requires the ingredient are rejected
// while the entry stands.
func (s *ShiftService) AddIngredientStopItem(ctx context.Context, ingredientID uuid.UUID) (database.IngredientStopListEntry, error) {
	var entry database.IngredientStopListEntry

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return entry, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetActiveShiftForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry, ErrNoActiveShift
		}
		return entry, fmt.Errorf("get active shift: %w", err)
	}

	if _, err := store.GetIngredient(ctx, ingredientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entry, ErrIngredientNotFound
		}
		return entry, fmt.Errorf("get ingredient: %w", err)
	}

	entry, err = store.AddIngredientStopListEntry(ctx, database.AddIngredientStopListEntryParams{
		ShiftID:      shift.ID,
		IngredientID: ingredientID,
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return database.IngredientStopListEntry{}, ErrAlreadyStopListed
		}
		return database.IngredientStopListEntry{}, fmt.Errorf("add ingredient stop list entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.IngredientStopListEntry{}, fmt.Errorf("commit tx: %w", err)
	}

	return entry, nil
}

// RemoveIngredientStopItem takes an ingredient off the active shift's stop list.
func (s *ShiftService) RemoveIngredientStopItem(ctx context.Context, ingredientID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetActiveShiftForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveShift
		}
		return fmt.Errorf("get active shift: %w", err)
	}

	deleted, err := store.RemoveIngredientStopListEntry(ctx, database.RemoveIngredientStopListEntryParams{
		ShiftID:      shift.ID,
		IngredientID: ingredientID,
	})
	if err != nil {
		return fmt.Errorf("remove ingredient stop list entry: %w", err)
	}
	if deleted == 0 {
		return ErrNotStopListed
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// --- Roster helpers ---

// parseRoster validates shape only: IDs parse, waiters non-empty, no
// duplicates. Existence and role checks happen inside the transaction.
func parseRoster(roster RosterRequest) ([]rosterEntry, error) {
	if len(roster.WaiterIDs) == 0 {
		return nil, ErrEmptyWaiters
	}

	cashierID, err := uuid.Parse(roster.CashierID)
	if err != nil {
		return nil, fmt.Errorf("cashier: %w", ErrInvalidStaffID)
	}

	entries := []rosterEntry{{userID: cashierID, role: enum.UserRoleCashier}}
	seen := map[uuid.UUID]bool{cashierID: true}

	for i, raw := range roster.WaiterIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("waiter[%d]: %w", i, ErrInvalidStaffID)
		}
		if seen[id] {
			return nil, fmt.Errorf("waiter[%d]: %w", i, ErrDuplicateStaff)
		}
		seen[id] = true
		entries = append(entries, rosterEntry{userID: id, role: enum.UserRoleWaiter})
	}

	return entries, nil
}

// validateRoster checks that every roster member is an active user holding
// the role they were enrolled under.
func validateRoster(ctx context.Context, store ShiftStore, entries []rosterEntry) error {
	for _, e := range entries {
		if _, err := store.GetActiveUserWithRole(ctx, e.userID, e.role); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%s %s: %w", e.role, e.userID, ErrStaffNotFound)
			}
			return fmt.Errorf("get user %s: %w", e.userID, err)
		}
	}
	return nil
}

func insertRoster(ctx context.Context, store ShiftStore, shiftID uuid.UUID, entries []rosterEntry) ([]database.ShiftStaff, error) {
	staff := make([]database.ShiftStaff, 0, len(entries))
	for _, e := range entries {
		row, err := store.AddShiftStaff(ctx, database.AddShiftStaffParams{
			ShiftID: shiftID,
			UserID:  e.userID,
			Role:    e.role,
		})
		if err != nil {
			return nil, fmt.Errorf("add shift staff: %w", err)
		}
		staff = append(staff, row)
	}
	return staff, nil
}
