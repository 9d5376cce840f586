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
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
)

// ShiftReadStore defines the read-only database methods needed by shift
// handlers. Mutations go through the ShiftService.
type ShiftReadStore interface {
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetActiveShift(ctx context.Context) (database.Shift, error)
	ListShifts(ctx context.Context) ([]database.Shift, error)
	ListShiftStaff(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftStaffMember, error)
}

// ShiftServicer defines the service methods needed by shift handlers.
// Satisfied by *service.ShiftService; narrow interface for testability.
type ShiftServicer interface {
	Open(ctx context.Context, managerID uuid.UUID, roster service.RosterRequest) (*service.ShiftResult, error)
	ReplaceStaff(ctx context.Context, shiftID uuid.UUID, roster service.RosterRequest) (*service.ShiftResult, error)
	Close(ctx context.Context, shiftID uuid.UUID) (database.Shift, error)
}

// ShiftHandler handles shift lifecycle endpoints.
type ShiftHandler struct {
	store ShiftReadStore
	svc   ShiftServicer
	hub   *ws.Hub
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(store ShiftReadStore, svc ShiftServicer, hub *ws.Hub) *ShiftHandler {
	return &ShiftHandler{store: store, svc: svc, hub: hub}
}

// RegisterRoutes registers shift endpoints on the given Chi router.
// Open, close, and roster replacement are MANAGER-only; the caller mounts
// those behind the role middleware.
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/active", h.Active)
	r.Get("/{id}", h.Get)
}

// RegisterManagerRoutes registers the mutating shift endpoints.
func (h *ShiftHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Post("/{id}/close", h.Close)
	r.Put("/{id}/staff", h.ReplaceStaff)
}

// --- Request / Response types ---

type rosterRequest struct {
	CashierID string   `json:"cashier_id"`
	WaiterIDs []string `json:"waiter_ids"`
}

type shiftStaffResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	FullName string    `json:"full_name,omitempty"`
}

type shiftResponse struct {
	ID        uuid.UUID            `json:"id"`
	StartedAt time.Time            `json:"started_at"`
	EndedAt   *time.Time           `json:"ended_at,omitempty"`
	IsActive  bool                 `json:"is_active"`
	ManagerID uuid.UUID            `json:"manager_id"`
	Staff     []shiftStaffResponse `json:"staff,omitempty"`
}

func toShiftResponse(s database.Shift) shiftResponse {
	resp := shiftResponse{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		IsActive:  s.IsActive,
		ManagerID: s.ManagerID,
	}
	if s.EndedAt.Valid {
		t := s.EndedAt.Time
		resp.EndedAt = &t
	}
	return resp
}

func toShiftResultResponse(result *service.ShiftResult) shiftResponse {
	resp := toShiftResponse(result.Shift)
	resp.Staff = make([]shiftStaffResponse, len(result.Staff))
	for i, ss := range result.Staff {
		resp.Staff[i] = shiftStaffResponse{UserID: ss.UserID, Role: ss.Role}
	}
	return resp
}

// --- Handlers ---

// List returns all shifts, newest first.
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.store.ListShifts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]shiftResponse, len(shifts))
	for i, s := range shifts {
		resp[i] = toShiftResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Active returns the currently open shift with its roster, or 404 when the
// restaurant is closed.
func (h *ShiftHandler) Active(w http.ResponseWriter, r *http.Request) {
	shift, err := h.store.GetActiveShift(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active shift"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithShiftAndStaff(w, r, shift)
}

// Get returns a single shift with its roster.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	shift, err := h.store.GetShift(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithShiftAndStaff(w, r, shift)
}

// Open starts a new shift with the given roster. The authenticated manager
// becomes the shift's manager.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req rosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Open(r.Context(), claims.UserID, service.RosterRequest{
		CashierID: req.CashierID,
		WaiterIDs: req.WaiterIDs,
	})
	if err != nil {
		h.writeShiftError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventShiftOpened, map[string]string{"shift_id": result.Shift.ID.String()})
	writeJSON(w, http.StatusCreated, toShiftResultResponse(result))
}

// Close ends the given shift. Open orders are left open; they belong to the
// shift that created them.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	shift, err := h.svc.Close(r.Context(), id)
	if err != nil {
		h.writeShiftError(w, err)
		return
	}

	h.hub.Broadcast(ws.EventShiftClosed, map[string]string{"shift_id": shift.ID.String()})
	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// ReplaceStaff swaps the active shift's roster mid-shift.
func (h *ShiftHandler) ReplaceStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	var req rosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.ReplaceStaff(r.Context(), id, service.RosterRequest{
		CashierID: req.CashierID,
		WaiterIDs: req.WaiterIDs,
	})
	if err != nil {
		h.writeShiftError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toShiftResultResponse(result))
}

// --- Helpers ---

func (h *ShiftHandler) respondWithShiftAndStaff(w http.ResponseWriter, r *http.Request, shift database.Shift) {
	staff, err := h.store.ListShiftStaff(r.Context(), shift.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toShiftResponse(shift)
	resp.Staff = make([]shiftStaffResponse, len(staff))
	for i, ss := range staff {
		resp.Staff[i] = shiftStaffResponse{UserID: ss.UserID, Role: ss.Role, FullName: ss.FullName}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ShiftHandler) writeShiftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrShiftAlreadyOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a shift is already open"})
	case errors.Is(err, service.ErrShiftNotActive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "shift is not active"})
	case errors.Is(err, service.ErrEmptyWaiters),
		errors.Is(err, service.ErrInvalidStaffID),
		errors.Is(err, service.ErrDuplicateStaff),
		errors.Is(err, service.ErrStaffNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: shift operation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
