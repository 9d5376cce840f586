package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/service"
)

// --- Mock ShiftStore ---

type stopKey struct {
	shiftID  uuid.UUID
	targetID uuid.UUID
}

type mockShiftStore struct {
	users       map[uuid.UUID]database.User
	activeShift *database.Shift
	staff       []database.ShiftStaff
	menuItems   map[uuid.UUID]database.MenuItem
	ingredients map[uuid.UUID]database.Ingredient
	menuStop    map[stopKey]bool
	ingrStop    map[stopKey]bool
}

func newMockShiftStore() *mockShiftStore {
	return &mockShiftStore{
		users:       make(map[uuid.UUID]database.User),
		menuItems:   make(map[uuid.UUID]database.MenuItem),
		ingredients: make(map[uuid.UUID]database.Ingredient),
		menuStop:    make(map[stopKey]bool),
		ingrStop:    make(map[stopKey]bool),
	}
}

func (m *mockShiftStore) GetActiveUserWithRole(_ context.Context, id uuid.UUID, role string) (database.User, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive || u.Role != role {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockShiftStore) CreateShift(_ context.Context, managerID uuid.UUID) (database.Shift, error) {
	if m.activeShift != nil {
		return database.Shift{}, uniqueViolation("shifts_one_active")
	}
	s := database.Shift{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		IsActive:  true,
		ManagerID: managerID,
		CreatedAt: time.Now(),
	}
	m.activeShift = &s
	return s, nil
}

func (m *mockShiftStore) GetActiveShiftForUpdate(_ context.Context) (database.Shift, error) {
	if m.activeShift == nil {
		return database.Shift{}, pgx.ErrNoRows
	}
	return *m.activeShift, nil
}

func (m *mockShiftStore) CloseShift(_ context.Context, id uuid.UUID) (database.Shift, error) {
	if m.activeShift == nil || m.activeShift.ID != id {
		return database.Shift{}, pgx.ErrNoRows
	}
	s := *m.activeShift
	s.IsActive = false
	s.EndedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	m.activeShift = nil
	return s, nil
}

func (m *mockShiftStore) AddShiftStaff(_ context.Context, arg database.AddShiftStaffParams) (database.ShiftStaff, error) {
	ss := database.ShiftStaff{
		ID:      uuid.New(),
		ShiftID: arg.ShiftID,
		UserID:  arg.UserID,
		Role:    arg.Role,
	}
	m.staff = append(m.staff, ss)
	return ss, nil
}

func (m *mockShiftStore) DeleteShiftStaff(_ context.Context, shiftID uuid.UUID) error {
	var kept []database.ShiftStaff
	for _, ss := range m.staff {
		if ss.ShiftID != shiftID {
			kept = append(kept, ss)
		}
	}
	m.staff = kept
	return nil
}

func (m *mockShiftStore) GetMenuItem(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
	mi, ok := m.menuItems[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return mi, nil
}

func (m *mockShiftStore) GetIngredient(_ context.Context, id uuid.UUID) (database.Ingredient, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return ing, nil
}

func (m *mockShiftStore) AddMenuStopListEntry(_ context.Context, arg database.AddMenuStopListEntryParams) (database.MenuStopListEntry, error) {
	key := stopKey{shiftID: arg.ShiftID, targetID: arg.MenuItemID}
	if m.menuStop[key] {
		return database.MenuStopListEntry{}, uniqueViolation("menu_stop_list_shift_id_menu_item_id_key")
	}
	m.menuStop[key] = true
	return database.MenuStopListEntry{
		ID:         uuid.New(),
		ShiftID:    arg.ShiftID,
		MenuItemID: arg.MenuItemID,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *mockShiftStore) RemoveMenuStopListEntry(_ context.Context, arg database.RemoveMenuStopListEntryParams) (int64, error) {
	key := stopKey{shiftID: arg.ShiftID, targetID: arg.MenuItemID}
	if !m.menuStop[key] {
		return 0, nil
	}
	delete(m.menuStop, key)
	return 1, nil
}

func (m *mockShiftStore) AddIngredientStopListEntry(_ context.Context, arg database.AddIngredientStopListEntryParams) (database.IngredientStopListEntry, error) {
	key := stopKey{shiftID: arg.ShiftID, targetID: arg.IngredientID}
	if m.ingrStop[key] {
		return database.IngredientStopListEntry{}, uniqueViolation("ingredient_stop_list_shift_id_ingredient_id_key")
	}
	m.ingrStop[key] = true
	return database.IngredientStopListEntry{
		ID:           uuid.New(),
		ShiftID:      arg.ShiftID,
		IngredientID: arg.IngredientID,
		CreatedAt:    time.Now(),
	}, nil
}

func (m *mockShiftStore) RemoveIngredientStopListEntry(_ context.Context, arg database.RemoveIngredientStopListEntryParams) (int64, error) {
	key := stopKey{shiftID: arg.ShiftID, targetID: arg.IngredientID}
	if !m.ingrStop[key] {
		return 0, nil
	}
	delete(m.ingrStop, key)
	return 1, nil
}

func newShiftService(store *mockShiftStore) *service.ShiftService {
	pool := &mockPool{}
	newStore := func(db database.DBTX) service.ShiftStore { return store }
	return service.NewShiftService(pool, newStore)
}

func (m *mockShiftStore) addUser(role string, active bool) uuid.UUID {
	id := uuid.New()
	m.users[id] = database.User{
		ID:       id,
		Username: "user-" + id.String()[:8],
		Role:     role,
		IsActive: active,
	}
	return id
}

// validRoster seeds one cashier and two waiters.
func (m *mockShiftStore) validRoster() service.RosterRequest {
	cashier := m.addUser(enum.UserRoleCashier, true)
	w1 := m.addUser(enum.UserRoleWaiter, true)
	w2 := m.addUser(enum.UserRoleWaiter, true)
	return service.RosterRequest{
		CashierID: cashier.String(),
		WaiterIDs: []string{w1.String(), w2.String()},
	}
}

// --- Open ---

func TestShiftOpen_HappyPath(t *testing.T) {
	store := newMockShiftStore()
	roster := store.validRoster()
	managerID := uuid.New()

	svc := newShiftService(store)
	result, err := svc.Open(context.Background(), managerID, roster)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !result.Shift.IsActive {
		t.Error("shift should be active")
	}
	if result.Shift.ManagerID != managerID {
		t.Errorf("manager: got %s, want %s", result.Shift.ManagerID, managerID)
	}
	if len(result.Staff) != 3 {
		t.Fatalf("staff: got %d, want 3", len(result.Staff))
	}
	if result.Staff[0].Role != enum.UserRoleCashier {
		t.Errorf("first staff role: got %s, want CASHIER", result.Staff[0].Role)
	}
	for _, ss := range result.Staff[1:] {
		if ss.Role != enum.UserRoleWaiter {
			t.Errorf("staff role: got %s, want WAITER", ss.Role)
		}
	}
}

func TestShiftOpen_SecondShiftRejected(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("first Open: %v", err)
	}

	_, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if !errors.Is(err, service.ErrShiftAlreadyOpen) {
		t.Errorf("got %v, want ErrShiftAlreadyOpen", err)
	}
}

func TestShiftOpen_EmptyWaiters(t *testing.T) {
	store := newMockShiftStore()
	cashier := store.addUser(enum.UserRoleCashier, true)

	svc := newShiftService(store)
	_, err := svc.Open(context.Background(), uuid.New(), service.RosterRequest{
		CashierID: cashier.String(),
	})
	if !errors.Is(err, service.ErrEmptyWaiters) {
		t.Errorf("got %v, want ErrEmptyWaiters", err)
	}
}

func TestShiftOpen_InvalidCashierID(t *testing.T) {
	store := newMockShiftStore()
	waiter := store.addUser(enum.UserRoleWaiter, true)

	svc := newShiftService(store)
	_, err := svc.Open(context.Background(), uuid.New(), service.RosterRequest{
		CashierID: "not-a-uuid",
		WaiterIDs: []string{waiter.String()},
	})
	if !errors.Is(err, service.ErrInvalidStaffID) {
		t.Errorf("got %v, want ErrInvalidStaffID", err)
	}
}

func TestShiftOpen_DuplicateWaiter(t *testing.T) {
	store := newMockShiftStore()
	cashier := store.addUser(enum.UserRoleCashier, true)
	waiter := store.addUser(enum.UserRoleWaiter, true)

	svc := newShiftService(store)
	_, err := svc.Open(context.Background(), uuid.New(), service.RosterRequest{
		CashierID: cashier.String(),
		WaiterIDs: []string{waiter.String(), waiter.String()},
	})
	if !errors.Is(err, service.ErrDuplicateStaff) {
		t.Errorf("got %v, want ErrDuplicateStaff", err)
	}
}

func TestShiftOpen_CashierRoleMismatch(t *testing.T) {
	store := newMockShiftStore()
	// A waiter enrolled in the cashier slot.
	notCashier := store.addUser(enum.UserRoleWaiter, true)
	waiter := store.addUser(enum.UserRoleWaiter, true)

	svc := newShiftService(store)
	_, err := svc.Open(context.Background(), uuid.New(), service.RosterRequest{
		CashierID: notCashier.String(),
		WaiterIDs: []string{waiter.String()},
	})
	if !errors.Is(err, service.ErrStaffNotFound) {
		t.Errorf("got %v, want ErrStaffNotFound", err)
	}
}

func TestShiftOpen_InactiveWaiter(t *testing.T) {
	store := newMockShiftStore()
	cashier := store.addUser(enum.UserRoleCashier, true)
	fired := store.addUser(enum.UserRoleWaiter, false)

	svc := newShiftService(store)
	_, err := svc.Open(context.Background(), uuid.New(), service.RosterRequest{
		CashierID: cashier.String(),
		WaiterIDs: []string{fired.String()},
	})
	if !errors.Is(err, service.ErrStaffNotFound) {
		t.Errorf("got %v, want ErrStaffNotFound", err)
	}
}

// --- ReplaceStaff ---

func TestReplaceStaff_HappyPath(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	opened, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// New roster: same cashier pool but one fresh waiter.
	cashier := store.addUser(enum.UserRoleCashier, true)
	waiter := store.addUser(enum.UserRoleWaiter, true)
	result, err := svc.ReplaceStaff(context.Background(), opened.Shift.ID, service.RosterRequest{
		CashierID: cashier.String(),
		WaiterIDs: []string{waiter.String()},
	})
	if err != nil {
		t.Fatalf("ReplaceStaff: %v", err)
	}

	if len(result.Staff) != 2 {
		t.Errorf("returned staff: got %d, want 2", len(result.Staff))
	}
	if len(store.staff) != 2 {
		t.Errorf("stored staff after replace: got %d, want 2", len(store.staff))
	}
}

func TestReplaceStaff_NoActiveShift(t *testing.T) {
	store := newMockShiftStore()
	roster := store.validRoster()

	svc := newShiftService(store)
	_, err := svc.ReplaceStaff(context.Background(), uuid.New(), roster)
	if !errors.Is(err, service.ErrShiftNotActive) {
		t.Errorf("got %v, want ErrShiftNotActive", err)
	}
}

func TestReplaceStaff_WrongShiftID(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err := svc.ReplaceStaff(context.Background(), uuid.New(), store.validRoster())
	if !errors.Is(err, service.ErrShiftNotActive) {
		t.Errorf("got %v, want ErrShiftNotActive", err)
	}
}

// --- Close ---

func TestShiftClose_HappyPath(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	opened, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	closed, err := svc.Close(context.Background(), opened.Shift.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.IsActive {
		t.Error("closed shift should not be active")
	}
	if !closed.EndedAt.Valid {
		t.Error("ended_at should be stamped")
	}
}

func TestShiftClose_Twice(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	opened, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Close(context.Background(), opened.Shift.ID); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	_, err = svc.Close(context.Background(), opened.Shift.ID)
	if !errors.Is(err, service.ErrShiftNotActive) {
		t.Errorf("got %v, want ErrShiftNotActive", err)
	}
}

func TestShiftClose_ThenReopen(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	opened, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Close(context.Background(), opened.Shift.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A closed shift no longer blocks a new one.
	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

// --- Stop lists ---

func TestAddMenuStopItem_HappyPath(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	opened, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	itemID := uuid.New()
	store.menuItems[itemID] = database.MenuItem{ID: itemID, Name: "Borscht", IsActive: true}

	entry, err := svc.AddMenuStopItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("AddMenuStopItem: %v", err)
	}
	if entry.ShiftID != opened.Shift.ID {
		t.Errorf("shift: got %s, want %s", entry.ShiftID, opened.Shift.ID)
	}
}

func TestAddMenuStopItem_NoActiveShift(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	_, err := svc.AddMenuStopItem(context.Background(), uuid.New())
	if !errors.Is(err, service.ErrNoActiveShift) {
		t.Errorf("got %v, want ErrNoActiveShift", err)
	}
}

func TestAddMenuStopItem_UnknownItem(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err := svc.AddMenuStopItem(context.Background(), uuid.New())
	if !errors.Is(err, service.ErrMenuItemNotFound) {
		t.Errorf("got %v, want ErrMenuItemNotFound", err)
	}
}

func TestAddMenuStopItem_Duplicate(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	itemID := uuid.New()
	store.menuItems[itemID] = database.MenuItem{ID: itemID, Name: "Borscht", IsActive: true}

	if _, err := svc.AddMenuStopItem(context.Background(), itemID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddMenuStopItem(context.Background(), itemID)
	if !errors.Is(err, service.ErrAlreadyStopListed) {
		t.Errorf("got %v, want ErrAlreadyStopListed", err)
	}
}

func TestRemoveMenuStopItem_HappyPath(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	itemID := uuid.New()
	store.menuItems[itemID] = database.MenuItem{ID: itemID, Name: "Borscht", IsActive: true}
	if _, err := svc.AddMenuStopItem(context.Background(), itemID); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.RemoveMenuStopItem(context.Background(), itemID); err != nil {
		t.Fatalf("RemoveMenuStopItem: %v", err)
	}

	// Removing again reports it is gone.
	err := svc.RemoveMenuStopItem(context.Background(), itemID)
	if !errors.Is(err, service.ErrNotStopListed) {
		t.Errorf("got %v, want ErrNotStopListed", err)
	}
}

func TestAddIngredientStopItem_HappyPath(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	opened, err := svc.Open(context.Background(), uuid.New(), store.validRoster())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ingrID := uuid.New()
	store.ingredients[ingrID] = database.Ingredient{ID: ingrID, Name: "Tomatoes", Unit: "kg"}

	entry, err := svc.AddIngredientStopItem(context.Background(), ingrID)
	if err != nil {
		t.Fatalf("AddIngredientStopItem: %v", err)
	}
	if entry.ShiftID != opened.Shift.ID {
		t.Errorf("shift: got %s, want %s", entry.ShiftID, opened.Shift.ID)
	}
}

func TestAddIngredientStopItem_UnknownIngredient(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err := svc.AddIngredientStopItem(context.Background(), uuid.New())
	if !errors.Is(err, service.ErrIngredientNotFound) {
		t.Errorf("got %v, want ErrIngredientNotFound", err)
	}
}

func TestRemoveIngredientStopItem_NotListed(t *testing.T) {
	store := newMockShiftStore()
	svc := newShiftService(store)

	if _, err := svc.Open(context.Background(), uuid.New(), store.validRoster()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	err := svc.RemoveIngredientStopItem(context.Background(), uuid.New())
	if !errors.Is(err, service.ErrNotStopListed) {
		t.Errorf("got %v, want ErrNotStopListed", err)
	}
}
