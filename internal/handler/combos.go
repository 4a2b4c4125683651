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
	"github.com/shopspring/decimal"

	"github.com/fornalha-pos/api/internal/database"
)

// ComboStore defines the database methods needed by combo handlers.
type ComboStore interface {
	ListCombos(ctx context.Context) ([]database.Combo, error)
	GetCombo(ctx context.Context, id uuid.UUID) (database.Combo, error)
	CreateCombo(ctx context.Context, arg database.CreateComboParams) (database.Combo, error)
	UpdateCombo(ctx context.Context, arg database.UpdateComboParams) (database.Combo, error)
	SoftDeleteCombo(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ComboHandler handles combo CRUD endpoints.
type ComboHandler struct {
	store ComboStore
}

// NewComboHandler creates a new ComboHandler.
func NewComboHandler(store ComboStore) *ComboHandler {
	return &ComboHandler{store: store}
}

// RegisterRoutes registers combo CRUD endpoints on the given Chi router.
func (h *ComboHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type comboRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	MaxFlavors  int32  `json:"max_flavors"`
	SortOrder   int32  `json:"sort_order"`
}

type comboResponse struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       string    `json:"price"`
	ImageURL    *string   `json:"image_url"`
	MaxFlavors  int32     `json:"max_flavors"`
	SortOrder   int32     `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toComboResponse(c database.Combo) comboResponse {
	resp := comboResponse{
		ID:         c.ID,
		CategoryID: c.CategoryID,
		Name:       c.Name,
		Price:      numericString(c.Price),
		MaxFlavors: c.MaxFlavors,
		SortOrder:  c.SortOrder,
		IsActive:   c.IsActive,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if c.Description.Valid {
		resp.Description = &c.Description.String
	}
	if c.ImageURL.Valid {
		resp.ImageURL = &c.ImageURL.String
	}
	return resp
}

func (r comboRequest) validate() (uuid.UUID, decimal.Decimal, string) {
	if r.Name == "" {
		return uuid.Nil, decimal.Zero, "name is required"
	}
	categoryID, err := uuid.Parse(r.CategoryID)
	if err != nil {
		return uuid.Nil, decimal.Zero, "invalid category_id"
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil || price.IsNegative() {
		return uuid.Nil, decimal.Zero, "price must be a non-negative decimal"
	}
	if r.MaxFlavors < 0 {
		return uuid.Nil, decimal.Zero, "max_flavors must be >= 0"
	}
	return categoryID, price, ""
}

// --- Handlers ---

// List returns all active combos. Public: the menu page uses it.
func (h *ComboHandler) List(w http.ResponseWriter, r *http.Request) {
	combos, err := h.store.ListCombos(r.Context())
	if err != nil {
		log.Printf("ERROR: list combos: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]comboResponse, len(combos))
	for i, c := range combos {
		resp[i] = toComboResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one combo.
func (h *ComboHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid combo ID"})
		return
	}

	combo, err := h.store.GetCombo(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "combo not found"})
			return
		}
		log.Printf("ERROR: get combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toComboResponse(combo))
}

// Create adds a new combo.
func (h *ComboHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req comboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, price, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	combo, err := h.store.CreateCombo(r.Context(), database.CreateComboParams{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Price:       decimalToNumeric(price),
		ImageURL:    textOrNull(req.ImageURL),
		MaxFlavors:  req.MaxFlavors,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		log.Printf("ERROR: create combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toComboResponse(combo))
}

// Update modifies an existing combo.
func (h *ComboHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid combo ID"})
		return
	}

	var req comboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, price, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	combo, err := h.store.UpdateCombo(r.Context(), database.UpdateComboParams{
		ID:          id,
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Price:       decimalToNumeric(price),
		ImageURL:    textOrNull(req.ImageURL),
		MaxFlavors:  req.MaxFlavors,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "combo not found"})
			return
		}
		log.Printf("ERROR: update combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toComboResponse(combo))
}

// Delete soft-deletes a combo.
func (h *ComboHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid combo ID"})
		return
	}

	if _, err := h.store.SoftDeleteCombo(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "combo not found"})
			return
		}
		log.Printf("ERROR: delete combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Money helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// numericString renders a stored amount as "12.34" for responses.
func numericString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}
