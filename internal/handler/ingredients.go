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
	"github.com/shopspring/decimal"
)

// IngredientStore defines the database methods needed by ingredient handlers.
type IngredientStore interface {
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
}

// IngredientHandler handles ingredient catalog endpoints.
type IngredientHandler struct {
	store IngredientStore
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(store IngredientStore) *IngredientHandler {
	return &IngredientHandler{store: store}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

type createIngredientRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentPrice string `json:"current_price"`
	InStock      string `json:"in_stock"`
}

type ingredientResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Unit           string     `json:"unit"`
	CurrentPrice   string     `json:"current_price"`
	InStock        string     `json:"in_stock"`
	LastDeliveryAt *time.Time `json:"last_delivery_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toIngredientResponse(ing database.Ingredient) ingredientResponse {
	resp := ingredientResponse{
		ID:           ing.ID,
		Name:         ing.Name,
		Unit:         ing.Unit,
		CurrentPrice: numericToString(ing.CurrentPrice),
		InStock:      numericToString(ing.InStock),
		CreatedAt:    ing.CreatedAt,
		UpdatedAt:    ing.UpdatedAt,
	}
	if ing.LastDeliveryAt.Valid {
		t := ing.LastDeliveryAt.Time
		resp.LastDeliveryAt = &t
	}
	return resp
}

// List returns the full ingredient catalog with stock levels.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = toIngredientResponse(ing)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single ingredient by ID.
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	ingredient, err := h.store.GetIngredient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

// Create adds a new ingredient to the catalog. Initial stock defaults to zero;
// stock normally arrives through deliveries afterwards.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}

	price := decimal.Zero
	if req.CurrentPrice != "" {
		var err error
		price, err = decimal.NewFromString(req.CurrentPrice)
		if err != nil || price.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid current_price"})
			return
		}
	}

	stock := decimal.Zero
	if req.InStock != "" {
		var err error
		stock, err = decimal.NewFromString(req.InStock)
		if err != nil || stock.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid in_stock"})
			return
		}
	}

	priceNum, err := decimalToNumeric(price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid current_price"})
		return
	}
	stockNum, err := decimalToNumeric(stock)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid in_stock"})
		return
	}

	ingredient, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		Name:         req.Name,
		Unit:         req.Unit,
		CurrentPrice: priceNum,
		InStock:      stockNum,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ingredient already exists"})
			return
		}
		log.Printf("ERROR: create ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toIngredientResponse(ingredient))
}
