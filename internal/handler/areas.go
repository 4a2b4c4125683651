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
	"github.com/shopspring/decimal"

	"github.com/fornalha-pos/api/internal/database"
)

// AreaStore defines the database methods needed by delivery-area handlers.
type AreaStore interface {
	ListDeliveryAreas(ctx context.Context) ([]database.DeliveryArea, error)
	CreateDeliveryArea(ctx context.Context, arg database.CreateDeliveryAreaParams) (database.DeliveryArea, error)
	UpdateDeliveryArea(ctx context.Context, arg database.UpdateDeliveryAreaParams) (database.DeliveryArea, error)
	SoftDeleteDeliveryArea(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// AreaHandler handles delivery-area CRUD endpoints.
type AreaHandler struct {
	store AreaStore
}

// NewAreaHandler creates a new AreaHandler.
func NewAreaHandler(store AreaStore) *AreaHandler {
	return &AreaHandler{store: store}
}

// RegisterRoutes registers delivery-area CRUD endpoints on the given Chi router.
func (h *AreaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type areaRequest struct {
	Name       string `json:"name"`
	Fee        string `json:"fee"`
	EtaMinutes int32  `json:"eta_minutes"`
}

type areaResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Fee        string    `json:"fee"`
	EtaMinutes int32     `json:"eta_minutes"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAreaResponse(a database.DeliveryArea) areaResponse {
	return areaResponse{
		ID:         a.ID,
		Name:       a.Name,
		Fee:        numericString(a.Fee),
		EtaMinutes: a.EtaMinutes,
		IsActive:   a.IsActive,
		CreatedAt:  a.CreatedAt,
	}
}

func (r areaRequest) validate() (decimal.Decimal, string) {
	if r.Name == "" {
		return decimal.Zero, "name is required"
	}
	fee, err := decimal.NewFromString(r.Fee)
	if err != nil || fee.IsNegative() {
		return decimal.Zero, "fee must be a non-negative decimal"
	}
	if r.EtaMinutes < 0 {
		return decimal.Zero, "eta_minutes must be >= 0"
	}
	return fee, ""
}

// List returns all active delivery areas. Public: checkout uses it.
func (h *AreaHandler) List(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.ListDeliveryAreas(r.Context())
	if err != nil {
		log.Printf("ERROR: list delivery areas: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]areaResponse, len(areas))
	for i, a := range areas {
		resp[i] = toAreaResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new delivery area.
func (h *AreaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fee, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	area, err := h.store.CreateDeliveryArea(r.Context(), database.CreateDeliveryAreaParams{
		Name:       req.Name,
		Fee:        decimalToNumeric(fee),
		EtaMinutes: req.EtaMinutes,
	})
	if err != nil {
		log.Printf("ERROR: create delivery area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toAreaResponse(area))
}

// Update modifies an existing delivery area.
func (h *AreaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid area ID"})
		return
	}

	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fee, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	area, err := h.store.UpdateDeliveryArea(r.Context(), database.UpdateDeliveryAreaParams{
		ID:         id,
		Name:       req.Name,
		Fee:        decimalToNumeric(fee),
		EtaMinutes: req.EtaMinutes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery area not found"})
			return
		}
		log.Printf("ERROR: update delivery area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toAreaResponse(area))
}

// Delete soft-deletes a delivery area.
func (h *AreaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid area ID"})
		return
	}

	if _, err := h.store.SoftDeleteDeliveryArea(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery area not found"})
			return
		}
		log.Printf("ERROR: delete delivery area: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
