package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetSalesSummary(ctx context.Context, arg database.GetSalesSummaryParams) (database.GetSalesSummaryRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	GetWaiterSales(ctx context.Context, arg database.GetWaiterSalesParams) ([]database.GetWaiterSalesRow, error)
	GetTopMenuItems(ctx context.Context, arg database.GetTopMenuItemsParams) ([]database.GetTopMenuItemsRow, error)
	GetInventoryMovement(ctx context.Context, arg database.GetInventoryMovementParams) ([]database.GetInventoryMovementRow, error)
	GetShiftSummaries(ctx context.Context, arg database.GetShiftSummariesParams) ([]database.GetShiftSummariesRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted behind an ADMIN/MANAGER role check: /reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/inventory", h.Inventory)
	r.Get("/shifts", h.Shifts)
}

// --- Response types ---

type paymentSummaryResponse struct {
	PaymentType      string `json:"payment_type"`
	TransactionCount int64  `json:"transaction_count"`
	TotalAmount      string `json:"total_amount"`
}

type waiterSalesResponse struct {
	WaiterID     uuid.UUID `json:"waiter_id"`
	WaiterName   string    `json:"waiter_name"`
	OrderCount   int64     `json:"order_count"`
	TotalRevenue string    `json:"total_revenue"`
}

type topMenuItemResponse struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type salesReportResponse struct {
	OrderCount     int64                    `json:"order_count"`
	TotalRevenue   string                   `json:"total_revenue"`
	AverageCheck   string                   `json:"average_check"`
	PaymentSummary []paymentSummaryResponse `json:"payment_summary"`
	WaiterSales    []waiterSalesResponse    `json:"waiter_sales"`
	TopMenuItems   []topMenuItemResponse    `json:"top_menu_items"`
}

type inventoryMovementResponse struct {
	IngredientID  uuid.UUID `json:"ingredient_id"`
	Name          string    `json:"name"`
	Unit          string    `json:"unit"`
	DeliveredQty  string    `json:"delivered_qty"`
	WrittenOffQty string    `json:"written_off_qty"`
	InStock       string    `json:"in_stock"`
}

type shiftSummaryResponse struct {
	ShiftID      uuid.UUID  `json:"shift_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ManagerName  string     `json:"manager_name"`
	OrderCount   int64      `json:"order_count"`
	TotalRevenue string     `json:"total_revenue"`
}

// --- Handlers ---

// Sales returns revenue totals, payment breakdown, per-waiter sales, and the
// top menu items for a date range.
func (h *ReportsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := int32(10)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		if n > 100 {
			n = 100
		}
		limit = int32(n)
	}

	summary, err := h.store.GetSalesSummary(r.Context(), database.GetSalesSummaryParams{
		PaidAt:   startDate,
		PaidAt_2: endDate,
	})
	if err != nil {
		log.Printf("ERROR: get sales summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		PaidAt:   startDate,
		PaidAt_2: endDate,
	})
	if err != nil {
		log.Printf("ERROR: get payment summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	waiters, err := h.store.GetWaiterSales(r.Context(), database.GetWaiterSalesParams{
		PaidAt:   startDate,
		PaidAt_2: endDate,
	})
	if err != nil {
		log.Printf("ERROR: get waiter sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	topItems, err := h.store.GetTopMenuItems(r.Context(), database.GetTopMenuItemsParams{
		PaidAt:   startDate,
		PaidAt_2: endDate,
		Limit:    limit,
	})
	if err != nil {
		log.Printf("ERROR: get top menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := salesReportResponse{
		OrderCount:     summary.OrderCount,
		TotalRevenue:   numericToString(summary.TotalRevenue),
		AverageCheck:   averageCheck(summary.TotalRevenue, summary.OrderCount),
		PaymentSummary: make([]paymentSummaryResponse, len(payments)),
		WaiterSales:    make([]waiterSalesResponse, len(waiters)),
		TopMenuItems:   make([]topMenuItemResponse, len(topItems)),
	}
	for i, p := range payments {
		resp.PaymentSummary[i] = paymentSummaryResponse{
			PaymentType:      p.PaymentType,
			TransactionCount: p.TransactionCount,
			TotalAmount:      numericToString(p.TotalAmount),
		}
	}
	for i, ws := range waiters {
		resp.WaiterSales[i] = waiterSalesResponse{
			WaiterID:     ws.WaiterID,
			WaiterName:   ws.WaiterName,
			OrderCount:   ws.OrderCount,
			TotalRevenue: numericToString(ws.TotalRevenue),
		}
	}
	for i, ti := range topItems {
		resp.TopMenuItems[i] = topMenuItemResponse{
			MenuItemID:   ti.MenuItemID,
			MenuItemName: ti.MenuItemName,
			QuantitySold: ti.QuantitySold,
			TotalRevenue: numericToString(ti.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Inventory returns per-ingredient deliveries, write-offs, and current stock
// for a date range.
func (h *ReportsHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetInventoryMovement(r.Context(), database.GetInventoryMovementParams{
		CreatedAt:   startDate,
		CreatedAt_2: endDate,
	})
	if err != nil {
		log.Printf("ERROR: get inventory movement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryMovementResponse, len(rows))
	for i, row := range rows {
		resp[i] = inventoryMovementResponse{
			IngredientID:  row.IngredientID,
			Name:          row.Name,
			Unit:          row.Unit,
			DeliveredQty:  numericToString(row.DeliveredQty),
			WrittenOffQty: numericToString(row.WrittenOffQty),
			InStock:       numericToString(row.InStock),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Shifts returns one summary row per shift started in the date range.
func (h *ReportsHandler) Shifts(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetShiftSummaries(r.Context(), database.GetShiftSummariesParams{
		StartedAt:   startDate,
		StartedAt_2: endDate,
	})
	if err != nil {
		log.Printf("ERROR: get shift summaries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]shiftSummaryResponse, len(rows))
	for i, row := range rows {
		sr := shiftSummaryResponse{
			ShiftID:      row.ShiftID,
			StartedAt:    row.StartedAt,
			ManagerName:  row.ManagerName,
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
		if row.EndedAt.Valid {
			t := row.EndedAt.Time
			sr.EndedAt = &t
		}
		resp[i] = sr
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func averageCheck(totalRevenue pgtype.Numeric, orderCount int64) string {
	if orderCount == 0 {
		return "0.00"
	}
	total, err := decimal.NewFromString(numericToString(totalRevenue))
	if err != nil {
		return "0.00"
	}
	return total.Div(decimal.NewFromInt(orderCount)).StringFixed(2)
}

// parseDateRange reads start_date/end_date query params (YYYY-MM-DD, UTC).
// Defaults to the last 30 days. The returned end is exclusive.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now := time.Now().UTC()

	// Default: last 30 days, midnight to next-day midnight
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -30)
	endDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		// Make end_date exclusive by adding 1 day
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return startDate, endDate, nil
}
