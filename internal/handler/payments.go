package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment endpoints. It shares the OrderHandler's
// read store and service; payments are an order lifecycle operation.
type PaymentHandler struct {
	store OrderReadStore
	svc   OrderServicer
	hub   *ws.Hub
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store OrderReadStore, svc OrderServicer, hub *ws.Hub) *PaymentHandler {
	return &PaymentHandler{store: store, svc: svc, hub: hub}
}

// RegisterRoutes registers payment read endpoints on the given Chi router.
// Expected to be mounted at /orders/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterCashierRoutes registers payment-taking endpoints. Expected to be
// mounted behind an ADMIN/MANAGER/CASHIER role check: waiters read orders
// but never settle them.
func (h *PaymentHandler) RegisterCashierRoutes(r chi.Router) {
	r.Post("/", h.Add)
}

// --- Request / Response types ---

type addPaymentRequest struct {
	Amount      string `json:"amount"`
	PaymentType string `json:"payment_type"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Amount      string    `json:"amount"`
	PaymentType string    `json:"payment_type"`
	CashierID   uuid.UUID `json:"cashier_id"`
	PaidAt      time.Time `json:"paid_at"`
}

type addPaymentResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
	Settled bool            `json:"settled"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Amount:      numericToString(p.Amount),
		PaymentType: p.PaymentType,
		CashierID:   p.CashierID,
		PaidAt:      p.PaidAt,
	}
}

// --- Handlers ---

// Add records a payment against an open order. The order settles when the
// paid total reaches the order total; overpayment is accepted.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	result, err := h.svc.RecordPayment(r.Context(), service.PaymentRequest{
		OrderID:     orderID,
		CashierID:   claims.UserID,
		Amount:      amount,
		PaymentType: req.PaymentType,
	})
	if err != nil {
		// Same error taxonomy as order creation and cancellation.
		writeOrderError(w, err)
		return
	}

	if result.Settled {
		h.hub.Broadcast(ws.EventOrderPaid, map[string]string{"order_id": orderID.String()})
	}

	writeJSON(w, http.StatusCreated, addPaymentResponse{
		Payment: toPaymentResponse(result.Payment),
		Order:   toOrderResponse(result.Order),
		Settled: result.Settled,
	})
}

// List returns an order's payments in the order they were taken.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}
