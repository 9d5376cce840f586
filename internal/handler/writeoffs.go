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

// WriteOffReadStore defines the read-only database methods needed by
// write-off handlers. Recording a write-off goes through the StockService.
type WriteOffReadStore interface {
	ListWriteOffs(ctx context.Context) ([]database.WriteOff, error)
	GetActiveShift(ctx context.Context) (database.Shift, error)
}

// WriteOffServicer defines the stock service behavior write-off handlers
// depend on. Satisfied by *service.StockService; narrow interface for
// testability.
type WriteOffServicer interface {
	RecordWriteOff(ctx context.Context, req service.WriteOffRequest) (*service.WriteOffResult, error)
}

// WriteOffHandler handles stock write-off endpoints.
type WriteOffHandler struct {
	store WriteOffReadStore
	svc   WriteOffServicer
}

// NewWriteOffHandler creates a new WriteOffHandler.
func NewWriteOffHandler(store WriteOffReadStore, svc WriteOffServicer) *WriteOffHandler {
	return &WriteOffHandler{store: store, svc: svc}
}

// RegisterRoutes registers write-off endpoints on the given Chi router.
func (h *WriteOffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

// --- Request / Response types ---

type createWriteOffRequest struct {
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity"`
	Reason       string `json:"reason"`
	Comment      string `json:"comment"`
}

type writeOffResponse struct {
	ID           uuid.UUID `json:"id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     string    `json:"quantity"`
	Reason       string    `json:"reason"`
	Comment      string    `json:"comment,omitempty"`
	ShiftID      uuid.UUID `json:"shift_id"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type recordWriteOffResponse struct {
	WriteOff   writeOffResponse   `json:"write_off"`
	Ingredient ingredientResponse `json:"ingredient"`
}

func toWriteOffResponse(wo database.WriteOff) writeOffResponse {
	resp := writeOffResponse{
		ID:           wo.ID,
		IngredientID: wo.IngredientID,
		Quantity:     numericToString(wo.Quantity),
		Reason:       wo.Reason,
		ShiftID:      wo.ShiftID,
		CreatedBy:    wo.CreatedBy,
		CreatedAt:    wo.CreatedAt,
	}
	if wo.Comment.Valid {
		resp.Comment = wo.Comment.String
	}
	return resp
}

// --- Handlers ---

// List returns all write-offs, newest first.
func (h *WriteOffHandler) List(w http.ResponseWriter, r *http.Request) {
	writeOffs, err := h.store.ListWriteOffs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]writeOffResponse, len(writeOffs))
	for i, wo := range writeOffs {
		resp[i] = toWriteOffResponse(wo)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create records a write-off against the active shift: stock goes down only
// if enough is on hand, and a ledger row is written.
func (h *WriteOffHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createWriteOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}

	shift, err := h.store.GetActiveShift(r.Context())
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active shift"})
		return
	}

	result, err := h.svc.RecordWriteOff(r.Context(), service.WriteOffRequest{
		IngredientID: ingredientID,
		Quantity:     quantity,
		Reason:       req.Reason,
		Comment:      req.Comment,
		ShiftID:      shift.ID,
		CreatedBy:    claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStockQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		case errors.Is(err, service.ErrInvalidWriteOffReason):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reason"})
		case errors.Is(err, service.ErrIngredientNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
		case errors.Is(err, service.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient stock"})
		case errors.Is(err, service.ErrNoActiveShift):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no active shift"})
		case errors.Is(err, service.ErrTxConflict):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "please retry"})
		default:
			log.Printf("ERROR: record write-off: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, recordWriteOffResponse{
		WriteOff:   toWriteOffResponse(result.WriteOff),
		Ingredient: toIngredientResponse(result.Ingredient),
	})
}
