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
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
)

// StopListReadStore defines the read-only database methods needed by
// stop-list handlers. Mutations go through the ShiftService so they can lock
// the active shift row.
type StopListReadStore interface {
	GetActiveShift(ctx context.Context) (database.Shift, error)
	ListMenuStopList(ctx context.Context, shiftID uuid.UUID) ([]database.MenuStopListEntry, error)
	ListIngredientStopList(ctx context.Context, shiftID uuid.UUID) ([]database.IngredientStopListEntry, error)
}

// StopListServicer defines the service methods needed by stop-list handlers.
// Satisfied by *service.ShiftService; narrow interface for testability.
type StopListServicer interface {
	AddMenuStopItem(ctx context.Context, menuItemID uuid.UUID) (database.MenuStopListEntry, error)
	RemoveMenuStopItem(ctx context.Context, menuItemID uuid.UUID) error
	AddIngredientStopItem(ctx context.Context, ingredientID uuid.UUID) (database.IngredientStopListEntry, error)
	RemoveIngredientStopItem(ctx context.Context, ingredientID uuid.UUID) error
}

// StopListHandler handles the per-shift menu and ingredient stop lists.
type StopListHandler struct {
	store StopListReadStore
	svc   StopListServicer
	hub   *ws.Hub
}

// NewStopListHandler creates a new StopListHandler.
func NewStopListHandler(store StopListReadStore, svc StopListServicer, hub *ws.Hub) *StopListHandler {
	return &StopListHandler{store: store, svc: svc, hub: hub}
}

// RegisterRoutes registers stop-list endpoints on the given Chi router.
func (h *StopListHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.ListMenu)
	r.Post("/menu", h.AddMenu)
	r.Delete("/menu/{id}", h.RemoveMenu)
	r.Get("/ingredients", h.ListIngredients)
	r.Post("/ingredients", h.AddIngredient)
	r.Delete("/ingredients/{id}", h.RemoveIngredient)
}

// --- Request / Response types ---

type addMenuStopRequest struct {
	MenuItemID string `json:"menu_item_id"`
}

type addIngredientStopRequest struct {
	IngredientID string `json:"ingredient_id"`
}

type menuStopEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	ShiftID    uuid.UUID `json:"shift_id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type ingredientStopEntryResponse struct {
	ID           uuid.UUID `json:"id"`
	ShiftID      uuid.UUID `json:"shift_id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Handlers ---

// ListMenu returns the active shift's menu stop list.
func (h *StopListHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	shift, ok := h.activeShift(w, r)
	if !ok {
		return
	}

	entries, err := h.store.ListMenuStopList(r.Context(), shift.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuStopEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = menuStopEntryResponse{ID: e.ID, ShiftID: e.ShiftID, MenuItemID: e.MenuItemID, CreatedAt: e.CreatedAt}
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddMenu puts a menu item on the active shift's stop list.
func (h *StopListHandler) AddMenu(w http.ResponseWriter, r *http.Request) {
	var req addMenuStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
		return
	}

	entry, err := h.svc.AddMenuStopItem(r.Context(), menuItemID)
	if err != nil {
		h.writeStopListError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventStopListItemAdded, map[string]string{"menu_item_id": menuItemID.String()})
	writeJSON(w, http.StatusCreated, menuStopEntryResponse{
		ID: entry.ID, ShiftID: entry.ShiftID, MenuItemID: entry.MenuItemID, CreatedAt: entry.CreatedAt,
	})
}

// RemoveMenu takes a menu item off the active shift's stop list.
func (h *StopListHandler) RemoveMenu(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if err := h.svc.RemoveMenuStopItem(r.Context(), menuItemID); err != nil {
		h.writeStopListError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventStopListItemRemoved, map[string]string{"menu_item_id": menuItemID.String()})
	w.WriteHeader(http.StatusNoContent)
}

// ListIngredients returns the active shift's ingredient stop list.
func (h *StopListHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	shift, ok := h.activeShift(w, r)
	if !ok {
		return
	}

	entries, err := h.store.ListIngredientStopList(r.Context(), shift.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientStopEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = ingredientStopEntryResponse{ID: e.ID, ShiftID: e.ShiftID, IngredientID: e.IngredientID, CreatedAt: e.CreatedAt}
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddIngredient puts an ingredient on the active shift's stop list. Menu
// items requiring it become unorderable without being listed themselves.
func (h *StopListHandler) AddIngredient(w http.ResponseWriter, r *http.Request) {
	var req addIngredientStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
		return
	}

	entry, err := h.svc.AddIngredientStopItem(r.Context(), ingredientID)
	if err != nil {
		h.writeStopListError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventStopListItemAdded, map[string]string{"ingredient_id": ingredientID.String()})
	writeJSON(w, http.StatusCreated, ingredientStopEntryResponse{
		ID: entry.ID, ShiftID: entry.ShiftID, IngredientID: entry.IngredientID, CreatedAt: entry.CreatedAt,
	})
}

// RemoveIngredient takes an ingredient off the active shift's stop list.
func (h *StopListHandler) RemoveIngredient(w http.ResponseWriter, r *http.Request) {
	ingredientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	if err := h.svc.RemoveIngredientStopItem(r.Context(), ingredientID); err != nil {
		h.writeStopListError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventStopListItemRemoved, map[string]string{"ingredient_id": ingredientID.String()})
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *StopListHandler) activeShift(w http.ResponseWriter, r *http.Request) (database.Shift, bool) {
	shift, err := h.store.GetActiveShift(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no active shift"})
			return database.Shift{}, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Shift{}, false
	}
	return shift, true
}

func (h *StopListHandler) writeStopListError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveShift):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active shift"})
	case errors.Is(err, service.ErrAlreadyStopListed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already on stop list"})
	case errors.Is(err, service.ErrNotStopListed):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not on stop list"})
	case errors.Is(err, service.ErrMenuItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
	case errors.Is(err, service.ErrIngredientNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
	default:
		log.Printf("ERROR: stop list operation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
