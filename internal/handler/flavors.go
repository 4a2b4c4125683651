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

	"github.com/fornalha-pos/api/internal/database"
)

// FlavorStore defines the database methods needed by flavor handlers.
type FlavorStore interface {
	ListFlavors(ctx context.Context) ([]database.Flavor, error)
	CreateFlavor(ctx context.Context, arg database.CreateFlavorParams) (database.Flavor, error)
	UpdateFlavor(ctx context.Context, arg database.UpdateFlavorParams) (database.Flavor, error)
	SoftDeleteFlavor(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// FlavorHandler handles flavor CRUD endpoints.
type FlavorHandler struct {
	store FlavorStore
}

// NewFlavorHandler creates a new FlavorHandler.
func NewFlavorHandler(store FlavorStore) *FlavorHandler {
	return &FlavorHandler{store: store}
}

// RegisterRoutes registers flavor CRUD endpoints on the given Chi router.
func (h *FlavorHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type flavorRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type flavorResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toFlavorResponse(f database.Flavor) flavorResponse {
	resp := flavorResponse{
		ID:        f.ID,
		Name:      f.Name,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
	}
	if f.Description.Valid {
		resp.Description = &f.Description.String
	}
	return resp
}

// List returns all active flavors. Public: the menu page uses it.
func (h *FlavorHandler) List(w http.ResponseWriter, r *http.Request) {
	flavors, err := h.store.ListFlavors(r.Context())
	if err != nil {
		log.Printf("ERROR: list flavors: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]flavorResponse, len(flavors))
	for i, f := range flavors {
		resp[i] = toFlavorResponse(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new flavor.
func (h *FlavorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req flavorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	flavor, err := h.store.CreateFlavor(r.Context(), database.CreateFlavorParams{
		Name:        req.Name,
		Description: textOrNull(req.Description),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "flavor already exists"})
			return
		}
		log.Printf("ERROR: create flavor: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toFlavorResponse(flavor))
}

// Update modifies an existing flavor.
func (h *FlavorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid flavor ID"})
		return
	}

	var req flavorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	flavor, err := h.store.UpdateFlavor(r.Context(), database.UpdateFlavorParams{
		ID:          id,
		Name:        req.Name,
		Description: textOrNull(req.Description),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "flavor not found"})
			return
		}
		log.Printf("ERROR: update flavor: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toFlavorResponse(flavor))
}

// Delete soft-deletes a flavor.
func (h *FlavorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid flavor ID"})
		return
	}

	if _, err := h.store.SoftDeleteFlavor(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "flavor not found"})
			return
		}
		log.Printf("ERROR: delete flavor: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
