//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/resto-pos/api/internal/config"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/router"
	"github.com/resto-pos/api/internal/ws"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises one full restaurant day against a real
// PostgreSQL database: staff setup, stock intake, a shift with an order,
// payment, stop list, write-off, close, and reports.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		CORSOrigins: "http://localhost:5173",
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit — Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap admin user (manual DB insert — no signup endpoint) ---
	adminID := createAdminUser(t, ctx, pool)

	// --- 2. Login as admin ---
	adminToken := login(t, server, "admin", "password123")

	// --- 3. Create manager, cashier and waiter through the API ---
	managerResp := createStaffUser(t, server, adminToken, "manager1", "Morgan Manager", "MANAGER")
	_ = uuid.MustParse(managerResp["id"].(string))
	cashierResp := createStaffUser(t, server, adminToken, "cashier1", "Casey Cashier", "CASHIER")
	cashierID := uuid.MustParse(cashierResp["id"].(string))
	waiterResp := createStaffUser(t, server, adminToken, "waiter1", "Dana Waiter", "WAITER")
	waiterID := uuid.MustParse(waiterResp["id"].(string))

	managerToken := login(t, server, "manager1", "password123")
	cashierToken := login(t, server, "cashier1", "password123")

	// --- 4. Catalog setup: supplier, ingredient, menu item ---
	supplierResp := httpPostJSON(t, server, "/suppliers", map[string]interface{}{
		"name":  "Fresh Farms",
		"phone": "555-0101",
	}, managerToken)
	supplierID := uuid.MustParse(supplierResp["id"].(string))

	ingredientResp := httpPostJSON(t, server, "/ingredients", map[string]interface{}{
		"name":          "Tomatoes",
		"unit":          "kg",
		"current_price": "3.50",
	}, managerToken)
	ingredientID := uuid.MustParse(ingredientResp["id"].(string))

	menuItemResp := httpPostJSON(t, server, "/menu", map[string]interface{}{
		"name":  "Tomato Soup",
		"price": "12.50",
		"ingredients": []map[string]interface{}{
			{"ingredient_id": ingredientID.String(), "quantity": "0.3"},
		},
	}, managerToken)
	menuItemID := uuid.MustParse(menuItemResp["id"].(string))

	// --- 5. Stock intake before the shift ---
	deliveryResp := httpPostJSON(t, server, "/deliveries", map[string]interface{}{
		"ingredient_id":  ingredientID.String(),
		"supplier_id":    supplierID.String(),
		"quantity":       "50",
		"price_per_unit": "3.80",
	}, managerToken)
	delivered := deliveryResp["ingredient"].(map[string]interface{})
	if delivered["in_stock"].(string) != "50.00" {
		t.Fatalf("in_stock after delivery: got %s, want 50.00", delivered["in_stock"])
	}
	if delivered["current_price"].(string) != "3.80" {
		t.Fatalf("current_price after delivery: got %s, want 3.80", delivered["current_price"])
	}

	// --- 6. Manager opens a shift with a roster ---
	shiftResp := httpPostJSON(t, server, "/shifts", map[string]interface{}{
		"cashier_id": cashierID.String(),
		"waiter_ids": []string{waiterID.String()},
	}, managerToken)
	shiftID := uuid.MustParse(shiftResp["id"].(string))
	if staff := shiftResp["staff"].([]interface{}); len(staff) != 2 {
		t.Fatalf("shift staff count: got %d, want 2", len(staff))
	}

	// Second open must be rejected while a shift is active
	rejectPost(t, server, "/shifts", map[string]interface{}{
		"cashier_id": cashierID.String(),
		"waiter_ids": []string{waiterID.String()},
	}, managerToken, http.StatusConflict)

	// --- 7. Cashier creates an order for the waiter's table ---
	orderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"table_number": "12",
		"waiter_id":    waiterID.String(),
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID.String(), "quantity": 2},
		},
	}, cashierToken)
	orderID := uuid.MustParse(orderResp["id"].(string))
	if got := orderResp["total_price"].(string); got != "25.00" {
		t.Fatalf("order total_price: got %s, want 25.00", got)
	}
	if got := orderResp["status"].(string); got != "OPEN" {
		t.Fatalf("order status: got %s, want OPEN", got)
	}

	// --- 8. Stop-list the menu item; further orders for it must fail ---
	httpPostJSON(t, server, "/stop-list/menu", map[string]interface{}{
		"menu_item_id": menuItemID.String(),
	}, managerToken)

	rejectPost(t, server, "/orders", map[string]interface{}{
		"table_number": "7",
		"waiter_id":    waiterID.String(),
		"items": []map[string]interface{}{
			{"menu_item_id": menuItemID.String(), "quantity": 1},
		},
	}, cashierToken, http.StatusConflict)

	// --- 9. Partial payment leaves the order open ---
	partialResp := httpPostJSON(t, server, fmt.Sprintf("/orders/%s/payments", orderID), map[string]interface{}{
		"amount":       "10.00",
		"payment_type": "CASH",
	}, cashierToken)
	if partialResp["settled"].(bool) {
		t.Fatalf("order settled after partial payment")
	}

	// --- 10. Remaining payment settles the order ---
	settleResp := httpPostJSON(t, server, fmt.Sprintf("/orders/%s/payments", orderID), map[string]interface{}{
		"amount":       "15.00",
		"payment_type": "CARD",
	}, cashierToken)
	if !settleResp["settled"].(bool) {
		t.Fatalf("order not settled after full payment")
	}
	settledOrder := settleResp["order"].(map[string]interface{})
	if got := settledOrder["status"].(string); got != "PAID" {
		t.Fatalf("order status after settlement: got %s, want PAID", got)
	}

	// --- 11. Write off spoiled stock during the shift ---
	writeOffResp := httpPostJSON(t, server, "/write-offs", map[string]interface{}{
		"ingredient_id": ingredientID.String(),
		"quantity":      "2.5",
		"reason":        "SPOILAGE",
		"comment":       "crate left out overnight",
	}, managerToken)
	afterWriteOff := writeOffResp["ingredient"].(map[string]interface{})
	if got := afterWriteOff["in_stock"].(string); got != "47.50" {
		t.Fatalf("in_stock after write-off: got %s, want 47.50", got)
	}

	// --- 12. Manager closes the shift ---
	closeResp := httpPostJSON(t, server, fmt.Sprintf("/shifts/%s/close", shiftID), nil, managerToken)
	if closeResp["is_active"].(bool) {
		t.Fatalf("shift still active after close")
	}

	// --- 13. Sales report reflects the settled order ---
	salesResp := httpGetJSON(t, server, "/reports/sales", managerToken)
	if got := salesResp["order_count"].(float64); got != 1 {
		t.Fatalf("report order_count: got %v, want 1", got)
	}
	if got := salesResp["total_revenue"].(string); got != "25.00" {
		t.Fatalf("report total_revenue: got %s, want 25.00", got)
	}
	if payments := salesResp["payment_summary"].([]interface{}); len(payments) != 2 {
		t.Fatalf("payment summary count: got %d, want 2", len(payments))
	}

	t.Logf("Integration test passed: container=%s, admin=%s, shift=%s, order=%s",
		pgContainer.GetContainerID(), adminID, shiftID, orderID)
}

// TestConcurrentStockMutations races parallel deliveries and write-offs on
// one ingredient against the real database. The ledger must balance: final
// stock = initial + deliveries − successful write-offs, every write-off
// either lands in full or fails with 409, and stock never goes negative.
func TestConcurrentStockMutations(t *testing.T) {
	ctx := context.Background()

	server, pool, cleanup := startTestAPI(t, ctx)
	defer cleanup()

	managerToken, cashierID, waiterID := bootstrapRoster(t, ctx, server, pool)

	supplierResp := httpPostJSON(t, server, "/suppliers", map[string]interface{}{
		"name": "Fresh Farms",
	}, managerToken)
	supplierID := supplierResp["id"].(string)

	ingredientResp := httpPostJSON(t, server, "/ingredients", map[string]interface{}{
		"name": "Tomatoes",
		"unit": "kg",
	}, managerToken)
	ingredientID := ingredientResp["id"].(string)

	// Initial balance of 10 so some concurrent write-offs must fail.
	httpPostJSON(t, server, "/deliveries", map[string]interface{}{
		"ingredient_id":  ingredientID,
		"supplier_id":    supplierID,
		"quantity":       "10",
		"price_per_unit": "3.50",
	}, managerToken)

	httpPostJSON(t, server, "/shifts", map[string]interface{}{
		"cashier_id": cashierID,
		"waiter_ids": []string{waiterID},
	}, managerToken)

	const (
		deliveries  = 10 // 2 kg each: +20
		writeOffs   = 10 // 6 kg each: at most 5 can succeed against 10+20
		deliveryQty = 2
		writeOffQty = 6
	)

	start := make(chan struct{})
	var wg sync.WaitGroup
	deliveryCodes := make(chan int, deliveries)
	writeOffCodes := make(chan int, writeOffs)

	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			code, err := postJSONStatus(server, "/deliveries", map[string]interface{}{
				"ingredient_id":  ingredientID,
				"supplier_id":    supplierID,
				"quantity":       "2",
				"price_per_unit": "3.50",
			}, managerToken)
			if err != nil {
				t.Errorf("delivery request: %v", err)
				return
			}
			deliveryCodes <- code
		}()
	}

	for i := 0; i < writeOffs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			code, err := postJSONStatus(server, "/write-offs", map[string]interface{}{
				"ingredient_id": ingredientID,
				"quantity":      "6",
				"reason":        "SPOILAGE",
			}, managerToken)
			if err != nil {
				t.Errorf("write-off request: %v", err)
				return
			}
			writeOffCodes <- code
		}()
	}

	close(start)
	wg.Wait()
	close(deliveryCodes)
	close(writeOffCodes)

	for code := range deliveryCodes {
		if code != http.StatusCreated {
			t.Errorf("delivery status: got %d, want %d", code, http.StatusCreated)
		}
	}

	succeeded := 0
	for code := range writeOffCodes {
		switch code {
		case http.StatusCreated:
			succeeded++
		case http.StatusConflict:
			// insufficient stock
		default:
			t.Errorf("write-off status: got %d, want %d or %d", code, http.StatusCreated, http.StatusConflict)
		}
	}

	available := int64(10 + deliveries*deliveryQty)
	if max := available / writeOffQty; int64(succeeded) > max {
		t.Errorf("write-offs succeeded: got %d, want at most %d", succeeded, max)
	}

	finalResp := httpGetJSON(t, server, "/ingredients/"+ingredientID, managerToken)
	finalStock, err := decimal.NewFromString(finalResp["in_stock"].(string))
	if err != nil {
		t.Fatalf("parse in_stock: %v", err)
	}

	want := decimal.NewFromInt(available - int64(succeeded*writeOffQty))
	if !finalStock.Equal(want) {
		t.Errorf("final stock: got %s, want %s (%d write-offs succeeded)", finalStock, want, succeeded)
	}
	if finalStock.IsNegative() {
		t.Errorf("final stock went negative: %s", finalStock)
	}
}

// TestConcurrentShiftOpen races two open-shift requests; the partial unique
// index must let exactly one through.
func TestConcurrentShiftOpen(t *testing.T) {
	ctx := context.Background()

	server, pool, cleanup := startTestAPI(t, ctx)
	defer cleanup()

	managerToken, cashierID, waiterID := bootstrapRoster(t, ctx, server, pool)

	body := map[string]interface{}{
		"cashier_id": cashierID,
		"waiter_ids": []string{waiterID},
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			code, err := postJSONStatus(server, "/shifts", body, managerToken)
			if err != nil {
				t.Errorf("open shift request: %v", err)
				return
			}
			codes <- code
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	created, conflicted := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		default:
			t.Errorf("open shift status: got %d, want %d or %d", code, http.StatusCreated, http.StatusConflict)
		}
	}
	if created != 1 || conflicted != 1 {
		t.Errorf("open shift outcomes: got %d created / %d conflicted, want 1 / 1", created, conflicted)
	}
}

// --- Setup helpers ---

// startTestAPI brings up a migrated postgres container and the full router.
func startTestAPI(t *testing.T, ctx context.Context) (*httptest.Server, *pgxpool.Pool, func()) {
	t.Helper()

	_, connStr, cleanupContainer := setupPostgresContainer(t, ctx)
	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanupContainer()
		t.Fatalf("create pool: %v", err)
	}

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		CORSOrigins: "http://localhost:5173",
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run()

	server := httptest.NewServer(router.New(cfg, queries, pool, hub))
	cleanup := func() {
		server.Close()
		pool.Close()
		cleanupContainer()
	}
	return server, pool, cleanup
}

// bootstrapRoster seeds an admin plus one manager, cashier and waiter, and
// returns a manager token with the cashier/waiter IDs for opening shifts.
func bootstrapRoster(t *testing.T, ctx context.Context, server *httptest.Server, pool *pgxpool.Pool) (string, string, string) {
	t.Helper()

	createAdminUser(t, ctx, pool)
	adminToken := login(t, server, "admin", "password123")

	createStaffUser(t, server, adminToken, "manager1", "Morgan Manager", "MANAGER")
	cashierResp := createStaffUser(t, server, adminToken, "cashier1", "Casey Cashier", "CASHIER")
	waiterResp := createStaffUser(t, server, adminToken, "waiter1", "Dana Waiter", "WAITER")

	managerToken := login(t, server, "manager1", "password123")
	return managerToken, cashierResp["id"].(string), waiterResp["id"].(string)
}

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("resto_test"),
		tcpostgres.WithUsername("resto"),
		tcpostgres.WithPassword("resto"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (username, full_name, hashed_password, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		"admin", "Site Admin", string(hashedPassword), "ADMIN",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

// --- API call helpers ---

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"username": username,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func createStaffUser(t *testing.T, server *httptest.Server, token, username, fullName, role string) map[string]interface{} {
	t.Helper()
	return httpPostJSON(t, server, "/users", map[string]interface{}{
		"username":  username,
		"password":  "password123",
		"full_name": fullName,
		"role":      role,
	}, token)
}

// --- HTTP helpers ---

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest("POST", server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("POST %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

// postJSONStatus posts and returns the status code without failing the
// test, so it is safe to call from concurrent goroutines.
func postJSONStatus(server *httptest.Server, path string, body map[string]interface{}, token string) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequest("POST", server.URL+path, bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	return resp.StatusCode, nil
}

// rejectPost asserts that a POST fails with the given status.
func rejectPost(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string, wantStatus int) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequest("POST", server.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status %d, want %d", path, resp.StatusCode, wantStatus)
	}
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}
