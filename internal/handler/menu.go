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
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	ListMenuItemIngredients(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuItemIngredient, error)
	AddMenuItemIngredient(ctx context.Context, arg database.AddMenuItemIngredientParams) (database.MenuItemIngredient, error)
	DeleteMenuItemIngredients(ctx context.Context, menuItemID uuid.UUID) error
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
}

// NewMenuStore creates a MenuStore from a DBTX (pool or tx).
type NewMenuStore func(db database.DBTX) MenuStore

// MenuHandler handles menu item CRUD endpoints. Creates and updates run in a
// transaction because the item row and its ingredient requirements must land
// together.
type MenuHandler struct {
	store    MenuStore
	pool     service.TxBeginner
	newStore NewMenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, pool service.TxBeginner, newStore NewMenuStore) *MenuHandler {
	return &MenuHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Deactivate)
}

// --- Request / Response types ---

type menuIngredientRequest struct {
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity"`
}

type createMenuItemRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Price       string                  `json:"price"`
	Ingredients []menuIngredientRequest `json:"ingredients"`
}

type updateMenuItemRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Price       string                  `json:"price"`
	IsActive    *bool                   `json:"is_active"`
	Ingredients []menuIngredientRequest `json:"ingredients"`
}

type menuIngredientResponse struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     string    `json:"quantity"`
}

type menuItemResponse struct {
	ID          uuid.UUID                `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Price       string                   `json:"price"`
	IsActive    bool                     `json:"is_active"`
	Ingredients []menuIngredientResponse `json:"ingredients"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem, ingredients []database.MenuItemIngredient) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Price:       numericToString(m.Price),
		IsActive:    m.IsActive,
		Ingredients: make([]menuIngredientResponse, len(ingredients)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Description.Valid {
		resp.Description = m.Description.String
	}
	for i, mi := range ingredients {
		resp.Ingredients[i] = menuIngredientResponse{
			IngredientID: mi.IngredientID,
			Quantity:     numericToString(mi.Quantity),
		}
	}
	return resp
}

// --- Handlers ---

// List returns all active menu items with their ingredient requirements.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		ingredients, err := h.store.ListMenuItemIngredients(r.Context(), m.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp[i] = toMenuItemResponse(m, ingredients)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item by ID, active or not.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	ingredients, err := h.store.ListMenuItemIngredients(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item, ingredients))
}

// Create adds a menu item together with its ingredient requirements.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and price are required"})
		return
	}

	price, err := parsePositiveNumeric(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	requirements, err := parseIngredientRequirements(req.Ingredients)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	description := pgtype.Text{}
	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx for create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	txStore := h.newStore(tx)

	item, err := txStore.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        req.Name,
		Description: description,
		Price:       price,
		CreatedBy:   claims.UserID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item already exists"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	ingredients, ok := h.insertRequirements(w, r, txStore, item.ID, requirements)
	if !ok {
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item, ingredients))
}

// Update replaces a menu item's fields and its full ingredient requirement
// list in one transaction.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and price are required"})
		return
	}

	price, err := parsePositiveNumeric(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	requirements, err := parseIngredientRequirements(req.Ingredients)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	description := pgtype.Text{}
	if req.Description != "" {
		description = pgtype.Text{String: req.Description, Valid: true}
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx for update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	txStore := h.newStore(tx)

	item, err := txStore.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          id,
		Name:        req.Name,
		Description: description,
		Price:       price,
		IsActive:    isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item already exists"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := txStore.DeleteMenuItemIngredients(r.Context(), id); err != nil {
		log.Printf("ERROR: delete menu item ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	ingredients, ok := h.insertRequirements(w, r, txStore, id, requirements)
	if !ok {
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item, ingredients))
}

// Deactivate soft-deletes a menu item. Existing orders keep their snapshotted
// prices; the item just stops being orderable.
func (h *MenuHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	_, err = h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		IsActive:    false,
	})
	if err != nil {
		log.Printf("ERROR: deactivate menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

type ingredientRequirement struct {
	ingredientID uuid.UUID
	quantity     pgtype.Numeric
}

func parseIngredientRequirements(reqs []menuIngredientRequest) ([]ingredientRequirement, error) {
	out := make([]ingredientRequirement, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for i, ir := range reqs {
		id, err := uuid.Parse(ir.IngredientID)
		if err != nil {
			return nil, errors.New("invalid ingredient_id")
		}
		if seen[id] {
			return nil, errors.New("duplicate ingredient_id")
		}
		seen[id] = true
		qty, err := parsePositiveNumeric(ir.Quantity)
		if err != nil {
			return nil, errors.New("ingredient quantity must be a positive number")
		}
		out[i] = ingredientRequirement{ingredientID: id, quantity: qty}
	}
	return out, nil
}

// insertRequirements inserts the requirement rows inside the caller's tx,
// verifying each ingredient exists. Writes the error response itself and
// reports success through the bool.
func (h *MenuHandler) insertRequirements(w http.ResponseWriter, r *http.Request, txStore MenuStore, menuItemID uuid.UUID, requirements []ingredientRequirement) ([]database.MenuItemIngredient, bool) {
	ingredients := make([]database.MenuItemIngredient, len(requirements))
	for i, req := range requirements {
		if _, err := txStore.GetIngredient(r.Context(), req.ingredientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ingredient not found: " + req.ingredientID.String()})
				return nil, false
			}
			log.Printf("ERROR: get ingredient for menu item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return nil, false
		}

		mi, err := txStore.AddMenuItemIngredient(r.Context(), database.AddMenuItemIngredientParams{
			MenuItemID:   menuItemID,
			IngredientID: req.ingredientID,
			Quantity:     req.quantity,
		})
		if err != nil {
			log.Printf("ERROR: add menu item ingredient: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return nil, false
		}
		ingredients[i] = mi
	}
	return ingredients, true
}

func parsePositiveNumeric(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if !d.IsPositive() {
		return pgtype.Numeric{}, errors.New("must be positive")
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}
