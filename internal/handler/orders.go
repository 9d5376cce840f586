package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order and payment
// handlers. Satisfied by *service.OrderService; narrow interface for
// testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	RecordPayment(ctx context.Context, req service.PaymentRequest) (*service.PaymentResult, error)
}

// OrderReadStore defines the read-only database methods needed by order
// handlers. Creation, cancellation, and payment go through the OrderServicer.
type OrderReadStore interface {
	GetActiveShift(ctx context.Context) (database.Shift, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrdersByShift(ctx context.Context, shiftID uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	store OrderReadStore
	svc   OrderServicer
	hub   *ws.Hub
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderReadStore, svc OrderServicer, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{store: store, svc: svc, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type createOrderRequest struct {
	TableNumber string                   `json:"table_number"`
	WaiterID    string                   `json:"waiter_id"`
	Items       []createOrderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	TableNumber string              `json:"table_number"`
	Status      string              `json:"status"`
	ShiftID     uuid.UUID           `json:"shift_id"`
	WaiterID    uuid.UUID           `json:"waiter_id"`
	CashierID   *uuid.UUID          `json:"cashier_id,omitempty"`
	TotalPrice  string              `json:"total_price"`
	CreatedAt   time.Time           `json:"created_at"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	Items       []orderItemResponse `json:"items,omitempty"`
	Payments    []paymentResponse   `json:"payments,omitempty"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		ShiftID:     o.ShiftID,
		WaiterID:    o.WaiterID,
		TotalPrice:  numericToString(o.TotalPrice),
		CreatedAt:   o.CreatedAt,
	}
	if o.CashierID.Valid {
		id := uuid.UUID(o.CashierID.Bytes)
		resp.CashierID = &id
	}
	if o.PaidAt.Valid {
		t := o.PaidAt.Time
		resp.PaidAt = &t
	}
	return resp
}

func toOrderItemResponses(items []database.OrderItem) []orderItemResponse {
	out := make([]orderItemResponse, len(items))
	for i, it := range items {
		out[i] = orderItemResponse{
			ID:         it.ID,
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  numericToString(it.UnitPrice),
		}
	}
	return out
}

// --- Handlers ---

// List returns the active shift's orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	shift, err := h.store.GetActiveShift(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, []orderResponse{})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOrdersByShift(r.Context(), shift.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order with its items and payments.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Items = toOrderItemResponses(items)
	resp.Payments = make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create opens a new order on the active shift.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	shift, err := h.store.GetActiveShift(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no active shift"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}

	result, err := h.svc.Create(r.Context(), service.CreateOrderRequest{
		ShiftID:     shift.ID,
		TableNumber: req.TableNumber,
		WaiterID:    req.WaiterID,
		Items:       items,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventOrderCreated, map[string]string{
		"order_id":     result.Order.ID.String(),
		"table_number": result.Order.TableNumber,
	})

	resp := toOrderResponse(result.Order)
	resp.Items = toOrderItemResponses(result.Items)
	writeJSON(w, http.StatusCreated, resp)
}

// Cancel voids an open order. Paid orders stay paid.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventOrderCancelled, map[string]string{"order_id": order.ID.String()})
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidMenuItemID),
		errors.Is(err, service.ErrInvalidWaiterID),
		errors.Is(err, service.ErrEmptyTableNumber),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentType):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNoActiveShift):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active shift"})
	case errors.Is(err, service.ErrWaiterNotOnShift):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "waiter is not on the shift roster"})
	case errors.Is(err, service.ErrItemStopListed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not open"})
	case errors.Is(err, service.ErrMenuItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrTxConflict):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "please retry"})
	default:
		log.Printf("ERROR: order operation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
