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
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// DeliveryReadStore defines the read-only database methods needed by
// delivery handlers. Recording a delivery goes through the StockService.
type DeliveryReadStore interface {
	ListDeliveries(ctx context.Context) ([]database.Delivery, error)
}

// DeliveryServicer defines the stock service behavior delivery handlers
// depend on. Satisfied by *service.StockService; narrow interface for
// testability.
type DeliveryServicer interface {
	RecordDelivery(ctx context.Context, req service.DeliveryRequest) (*service.DeliveryResult, error)
}

// DeliveryHandler handles supplier delivery endpoints.
type DeliveryHandler struct {
	store DeliveryReadStore
	svc   DeliveryServicer
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(store DeliveryReadStore, svc DeliveryServicer) *DeliveryHandler {
	return &DeliveryHandler{store: store, svc: svc}
}

// RegisterRoutes registers delivery endpoints on the given Chi router.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

// --- Request / Response types ---

type createDeliveryRequest struct {
	IngredientID string `json:"ingredient_id"`
	SupplierID   string `json:"supplier_id"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
}

type deliveryResponse struct {
	ID           uuid.UUID `json:"id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	Quantity     string    `json:"quantity"`
	PricePerUnit string    `json:"price_per_unit"`
	DeliveredAt  time.Time `json:"delivered_at"`
	CreatedBy    uuid.UUID `json:"created_by"`
}

type recordDeliveryResponse struct {
	Delivery   deliveryResponse   `json:"delivery"`
	Ingredient ingredientResponse `json:"ingredient"`
}

func toDeliveryResponse(d database.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:           d.ID,
		IngredientID: d.IngredientID,
		SupplierID:   d.SupplierID,
		Quantity:     numericToString(d.Quantity),
		PricePerUnit: numericToString(d.PricePerUnit),
		DeliveredAt:  d.DeliveredAt,
		CreatedBy:    d.CreatedBy,
	}
}

// --- Handlers ---

// List returns all deliveries, newest first.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.store.ListDeliveries(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]deliveryResponse, len(deliveries))
	for i, d := range deliveries {
		resp[i] = toDeliveryResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create records a delivery: stock goes up, the ingredient's current price is
// overwritten, and a ledger row is written.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
		return
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier_id"})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}

	pricePerUnit, err := decimal.NewFromString(req.PricePerUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price_per_unit"})
		return
	}

	result, err := h.svc.RecordDelivery(r.Context(), service.DeliveryRequest{
		IngredientID: ingredientID,
		SupplierID:   supplierID,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		CreatedBy:    claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStockQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		case errors.Is(err, service.ErrInvalidPrice):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price_per_unit must be positive"})
		case errors.Is(err, service.ErrSupplierNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "supplier not found"})
		case errors.Is(err, service.ErrIngredientNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
		case errors.Is(err, service.ErrTxConflict):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "please retry"})
		default:
			log.Printf("ERROR: record delivery: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, recordDeliveryResponse{
		Delivery:   toDeliveryResponse(result.Delivery),
		Ingredient: toIngredientResponse(result.Ingredient),
	})
}
