package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/resto-pos/api/internal/database"
)

// SettingsStore defines the database methods needed by settings handlers.
type SettingsStore interface {
	ListSettings(ctx context.Context) ([]database.Setting, error)
	UpsertSetting(ctx context.Context, arg database.UpsertSettingParams) (database.Setting, error)
}

// SettingsHandler handles restaurant-level key/value settings.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers settings endpoints on the given Chi router.
// Expected to be mounted behind an ADMIN/MANAGER role check: /settings
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Upsert)
}

type upsertSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type settingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toSettingResponse(s database.Setting) settingResponse {
	return settingResponse{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
}

// List returns all settings ordered by key.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		log.Printf("ERROR: list settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]settingResponse, len(settings))
	for i, s := range settings {
		resp[i] = toSettingResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Upsert creates a setting or overwrites its value.
func (h *SettingsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}

	setting, err := h.store.UpsertSetting(r.Context(), database.UpsertSettingParams{
		Key:   req.Key,
		Value: req.Value,
	})
	if err != nil {
		log.Printf("ERROR: upsert setting: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSettingResponse(setting))
}
