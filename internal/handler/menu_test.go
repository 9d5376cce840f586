package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/handler"
	"github.com/resto-pos/api/internal/middleware"
)

// --- Mock store ---

type mockMenuStore struct {
	menuItems    map[uuid.UUID]database.MenuItem
	requirements map[uuid.UUID][]database.MenuItemIngredient
	ingredients  map[uuid.UUID]database.Ingredient
}

func newMockMenuStore() *mockMenuStore {
	return &mockMenuStore{
		menuItems:    make(map[uuid.UUID]database.MenuItem),
		requirements: make(map[uuid.UUID][]database.MenuItemIngredient),
		ingredients:  make(map[uuid.UUID]database.Ingredient),
	}
}

func (m *mockMenuStore) addIngredient(ing database.Ingredient) {
	m.ingredients[ing.ID] = ing
}

func (m *mockMenuStore) ListMenuItems(_ context.Context) ([]database.MenuItem, error) {
	out := []database.MenuItem{}
	for _, mi := range m.menuItems {
		if mi.IsActive {
			out = append(out, mi)
		}
	}
	return out, nil
}

func (m *mockMenuStore) GetMenuItem(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
	mi, ok := m.menuItems[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return mi, nil
}

func (m *mockMenuStore) CreateMenuItem(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	for _, mi := range m.menuItems {
		if mi.Name == arg.Name {
			return database.MenuItem{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	mi := database.MenuItem{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		IsActive:    true,
		CreatedBy:   arg.CreatedBy,
	}
	m.menuItems[mi.ID] = mi
	return mi, nil
}

func (m *mockMenuStore) UpdateMenuItem(_ context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	mi, ok := m.menuItems[arg.ID]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	mi.Name = arg.Name
	mi.Description = arg.Description
	mi.Price = arg.Price
	mi.IsActive = arg.IsActive
	m.menuItems[mi.ID] = mi
	return mi, nil
}

func (m *mockMenuStore) ListMenuItemIngredients(_ context.Context, menuItemID uuid.UUID) ([]database.MenuItemIngredient, error) {
	return m.requirements[menuItemID], nil
}

func (m *mockMenuStore) AddMenuItemIngredient(_ context.Context, arg database.AddMenuItemIngredientParams) (database.MenuItemIngredient, error) {
	mi := database.MenuItemIngredient{
		ID:           uuid.New(),
		MenuItemID:   arg.MenuItemID,
		IngredientID: arg.IngredientID,
		Quantity:     arg.Quantity,
	}
	m.requirements[arg.MenuItemID] = append(m.requirements[arg.MenuItemID], mi)
	return mi, nil
}

func (m *mockMenuStore) DeleteMenuItemIngredients(_ context.Context, menuItemID uuid.UUID) error {
	delete(m.requirements, menuItemID)
	return nil
}

func (m *mockMenuStore) GetIngredient(_ context.Context, id uuid.UUID) (database.Ingredient, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return ing, nil
}

// --- Mock TxBeginner ---

type mockTx struct{}

func (m *mockTx) Commit(ctx context.Context) error   { return nil }
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, nil
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}
func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

type mockPool struct{}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &mockTx{}, nil
}

// --- Test helpers ---

func setupMenuRouter(store *mockMenuStore) *chi.Mux {
	newStore := func(db database.DBTX) handler.MenuStore { return store }
	h := handler.NewMenuHandler(store, &mockPool{}, newStore)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Use(middleware.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
	r.Route("/menu", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestMenuCreate_WithIngredients(t *testing.T) {
	store := newMockMenuStore()
	tomato := database.Ingredient{ID: uuid.New(), Name: "Tomatoes", Unit: "kg"}
	rice := database.Ingredient{ID: uuid.New(), Name: "Rice", Unit: "kg"}
	store.addIngredient(tomato)
	store.addIngredient(rice)

	router := setupMenuRouter(store)
	rr := doAuthRequest(t, router, "POST", "/menu", map[string]interface{}{
		"name":        "Tomato Rice",
		"description": "House special",
		"price":       "12.50",
		"ingredients": []map[string]string{
			{"ingredient_id": tomato.ID.String(), "quantity": "0.2"},
			{"ingredient_id": rice.ID.String(), "quantity": "0.3"},
		},
	}, managerClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["name"] != "Tomato Rice" {
		t.Errorf("name: got %v, want Tomato Rice", resp["name"])
	}
	if resp["price"] != "12.50" {
		t.Errorf("price: got %v, want 12.50", resp["price"])
	}
	if resp["is_active"] != true {
		t.Errorf("is_active: got %v, want true", resp["is_active"])
	}
	ingredients := resp["ingredients"].([]interface{})
	if len(ingredients) != 2 {
		t.Fatalf("ingredients count: got %d, want 2", len(ingredients))
	}
	first := ingredients[0].(map[string]interface{})
	if first["quantity"] != "0.20" {
		t.Errorf("ingredient quantity: got %v, want 0.20", first["quantity"])
	}
}

func TestMenuCreate_UnknownIngredient(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	rr := doAuthRequest(t, router, "POST", "/menu", map[string]interface{}{
		"name":  "Mystery Dish",
		"price": "9.00",
		"ingredients": []map[string]string{
			{"ingredient_id": uuid.New().String(), "quantity": "1"},
		},
	}, managerClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestMenuCreate_DuplicateIngredient(t *testing.T) {
	store := newMockMenuStore()
	tomato := database.Ingredient{ID: uuid.New(), Name: "Tomatoes", Unit: "kg"}
	store.addIngredient(tomato)

	router := setupMenuRouter(store)
	rr := doAuthRequest(t, router, "POST", "/menu", map[string]interface{}{
		"name":  "Double Tomato",
		"price": "8.00",
		"ingredients": []map[string]string{
			{"ingredient_id": tomato.ID.String(), "quantity": "0.1"},
			{"ingredient_id": tomato.ID.String(), "quantity": "0.2"},
		},
	}, managerClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuCreate_NonPositivePrice(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	rr := doAuthRequest(t, router, "POST", "/menu", map[string]interface{}{
		"name":  "Free Lunch",
		"price": "0",
	}, managerClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuCreate_DuplicateName(t *testing.T) {
	store := newMockMenuStore()
	router := setupMenuRouter(store)

	body := map[string]interface{}{"name": "Tomato Rice", "price": "12.50"}
	rr := doAuthRequest(t, router, "POST", "/menu", body, managerClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("first create: got %d, want %d", rr.Code, http.StatusCreated)
	}

	rr = doAuthRequest(t, router, "POST", "/menu", body, managerClaims())
	if rr.Code != http.StatusConflict {
		t.Errorf("second create: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestMenuUpdate_ReplacesRequirements(t *testing.T) {
	store := newMockMenuStore()
	tomato := database.Ingredient{ID: uuid.New(), Name: "Tomatoes", Unit: "kg"}
	onion := database.Ingredient{ID: uuid.New(), Name: "Onions", Unit: "kg"}
	store.addIngredient(tomato)
	store.addIngredient(onion)

	itemID := uuid.New()
	store.menuItems[itemID] = database.MenuItem{
		ID: itemID, Name: "Old Dish", Price: testNumeric("10.00"), IsActive: true,
	}
	store.requirements[itemID] = []database.MenuItemIngredient{
		{ID: uuid.New(), MenuItemID: itemID, IngredientID: tomato.ID, Quantity: testNumeric("0.5")},
	}

	router := setupMenuRouter(store)
	rr := doAuthRequest(t, router, "PUT", "/menu/"+itemID.String(), map[string]interface{}{
		"name":  "New Dish",
		"price": "11.00",
		"ingredients": []map[string]string{
			{"ingredient_id": onion.ID.String(), "quantity": "0.4"},
		},
	}, managerClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["name"] != "New Dish" {
		t.Errorf("name: got %v, want New Dish", resp["name"])
	}
	ingredients := resp["ingredients"].([]interface{})
	if len(ingredients) != 1 {
		t.Fatalf("ingredients count: got %d, want 1", len(ingredients))
	}
	first := ingredients[0].(map[string]interface{})
	if first["ingredient_id"] != onion.ID.String() {
		t.Errorf("ingredient_id: got %v, want %v", first["ingredient_id"], onion.ID)
	}
}

func TestMenuUpdate_NotFound(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	rr := doAuthRequest(t, router, "PUT", "/menu/"+uuid.New().String(), map[string]interface{}{
		"name":  "Ghost Dish",
		"price": "5.00",
	}, managerClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestMenuDeactivate(t *testing.T) {
	store := newMockMenuStore()
	itemID := uuid.New()
	store.menuItems[itemID] = database.MenuItem{
		ID: itemID, Name: "Retiring Dish", Price: testNumeric("10.00"), IsActive: true,
	}

	router := setupMenuRouter(store)
	rr := doAuthRequest(t, router, "DELETE", "/menu/"+itemID.String(), nil, managerClaims())

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	if store.menuItems[itemID].IsActive {
		t.Error("expected menu item to be deactivated, not deleted")
	}
}

func TestMenuList_ActiveOnly(t *testing.T) {
	store := newMockMenuStore()
	activeID := uuid.New()
	retiredID := uuid.New()
	store.menuItems[activeID] = database.MenuItem{ID: activeID, Name: "Active", Price: testNumeric("5.00"), IsActive: true}
	store.menuItems[retiredID] = database.MenuItem{ID: retiredID, Name: "Retired", Price: testNumeric("6.00"), IsActive: false}

	router := setupMenuRouter(store)
	rr := doAuthRequest(t, router, "GET", "/menu", nil, managerClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	list := decodeList(t, rr)
	if len(list) != 1 {
		t.Errorf("menu item count: got %d, want 1", len(list))
	}
}

func TestMenuGet_NotFound(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	rr := doAuthRequest(t, router, "GET", "/menu/"+uuid.New().String(), nil, managerClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
