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
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/middleware"
)

// RegisterStore defines the database methods needed by cash-register handlers.
type RegisterStore interface {
	GetOpenRegisterSession(ctx context.Context) (database.RegisterSession, error)
	OpenRegisterSession(ctx context.Context, arg database.OpenRegisterSessionParams) (database.RegisterSession, error)
	CloseRegisterSession(ctx context.Context, arg database.CloseRegisterSessionParams) (database.RegisterSession, error)
	SumCashOrdersSince(ctx context.Context, since time.Time) (pgtype.Numeric, error)
	CreateRegisterMovement(ctx context.Context, arg database.CreateRegisterMovementParams) (database.RegisterMovement, error)
	ListRegisterMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]database.RegisterMovement, error)
	SumMovementsBySession(ctx context.Context, sessionID uuid.UUID) (pgtype.Numeric, error)
}

// RegisterHandler handles cash-register session endpoints.
type RegisterHandler struct {
	store RegisterStore
}

// NewRegisterHandler creates a new RegisterHandler.
func NewRegisterHandler(store RegisterStore) *RegisterHandler {
	return &RegisterHandler{store: store}
}

// RegisterRoutes registers cash-register endpoints on the given Chi router.
func (h *RegisterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/current", h.Current)
	r.Post("/open", h.Open)
	r.Post("/close", h.Close)
	r.Post("/movements", h.CreateMovement)
	r.Get("/movements", h.ListMovements)
}

// --- Request / Response types ---

type openRegisterRequest struct {
	OpeningAmount string `json:"opening_amount"`
}

type closeRegisterRequest struct {
	CountedAmount string `json:"counted_amount"`
}

type movementRequest struct {
	MovementType string `json:"movement_type"`
	Amount       string `json:"amount"`
	Reason       string `json:"reason"`
}

type registerSessionResponse struct {
	ID             uuid.UUID  `json:"id"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	OpeningAmount  string     `json:"opening_amount"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedBy       *uuid.UUID `json:"closed_by"`
	CountedAmount  *string    `json:"counted_amount"`
	ExpectedAmount *string    `json:"expected_amount"`
	Difference     *string    `json:"difference"`
	ClosedAt       *time.Time `json:"closed_at"`
}

type movementResponse struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	MovementType string    `json:"movement_type"`
	Amount       string    `json:"amount"`
	Reason       *string   `json:"reason"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func toSessionResponse(s database.RegisterSession) registerSessionResponse {
	resp := registerSessionResponse{
		ID:            s.ID,
		OpenedBy:      s.OpenedBy,
		OpeningAmount: numericString(s.OpeningAmount),
		OpenedAt:      s.OpenedAt,
	}
	if s.ClosedBy.Valid {
		id := uuid.UUID(s.ClosedBy.Bytes)
		resp.ClosedBy = &id
	}
	if s.CountedAmount.Valid {
		v := numericString(s.CountedAmount)
		resp.CountedAmount = &v
	}
	if s.ExpectedAmount.Valid {
		v := numericString(s.ExpectedAmount)
		resp.ExpectedAmount = &v
	}
	if s.Difference.Valid {
		v := numericString(s.Difference)
		resp.Difference = &v
	}
	if s.ClosedAt.Valid {
		t := s.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}

func toMovementResponse(m database.RegisterMovement) movementResponse {
	resp := movementResponse{
		ID:           m.ID,
		SessionID:    m.SessionID,
		MovementType: m.MovementType,
		Amount:       numericString(m.Amount),
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
	if m.Reason.Valid {
		resp.Reason = &m.Reason.String
	}
	return resp
}

// --- Handlers ---

// Current returns the open session with its running expected amount, or 404
// when the register is closed.
func (h *RegisterHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetOpenRegisterSession(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open register session"})
			return
		}
		log.Printf("ERROR: current register session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	expected, err := h.expectedAmount(r.Context(), session)
	if err != nil {
		log.Printf("ERROR: compute expected amount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toSessionResponse(session)
	v := expected.StringFixed(2)
	resp.ExpectedAmount = &v
	writeJSON(w, http.StatusOK, resp)
}

// Open starts a register session. Only one may be open at a time; the partial
// unique index on register_sessions enforces it under concurrency.
func (h *RegisterHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req openRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.OpeningAmount)
	if err != nil || amount.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "opening_amount must be a non-negative decimal"})
		return
	}

	session, err := h.store.OpenRegisterSession(r.Context(), database.OpenRegisterSessionParams{
		OpenedBy:      claims.UserID,
		OpeningAmount: decimalToNumeric(amount),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "register is already open"})
			return
		}
		log.Printf("ERROR: open register: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// Close settles the open session: expected = opening + cash sales + supplies
// - withdrawals; difference = counted - expected.
func (h *RegisterHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req closeRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	counted, err := decimal.NewFromString(req.CountedAmount)
	if err != nil || counted.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "counted_amount must be a non-negative decimal"})
		return
	}

	session, err := h.store.GetOpenRegisterSession(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no open register session"})
			return
		}
		log.Printf("ERROR: close register lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	expected, err := h.expectedAmount(r.Context(), session)
	if err != nil {
		log.Printf("ERROR: compute expected amount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	closed, err := h.store.CloseRegisterSession(r.Context(), database.CloseRegisterSessionParams{
		ID:             session.ID,
		ClosedBy:       pgtype.UUID{Bytes: claims.UserID, Valid: true},
		CountedAmount:  decimalToNumeric(counted),
		ExpectedAmount: decimalToNumeric(expected),
		Difference:     decimalToNumeric(counted.Sub(expected)),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "register was closed by another user"})
			return
		}
		log.Printf("ERROR: close register: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(closed))
}

// CreateMovement records a withdrawal or supply against the open session.
func (h *RegisterHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.MovementType != enum.MovementWithdrawal && req.MovementType != enum.MovementSupply {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid movement_type"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be a positive decimal"})
		return
	}

	session, err := h.store.GetOpenRegisterSession(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no open register session"})
			return
		}
		log.Printf("ERROR: movement session lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	movement, err := h.store.CreateRegisterMovement(r.Context(), database.CreateRegisterMovementParams{
		SessionID:    session.ID,
		MovementType: req.MovementType,
		Amount:       decimalToNumeric(amount),
		Reason:       textOrNull(req.Reason),
		CreatedBy:    claims.UserID,
	})
	if err != nil {
		log.Printf("ERROR: create movement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMovementResponse(movement))
}

// ListMovements returns the open session's movements in order.
func (h *RegisterHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetOpenRegisterSession(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no open register session"})
			return
		}
		log.Printf("ERROR: movements session lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	movements, err := h.store.ListRegisterMovementsBySession(r.Context(), session.ID)
	if err != nil {
		log.Printf("ERROR: list movements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RegisterHandler) expectedAmount(ctx context.Context, session database.RegisterSession) (decimal.Decimal, error) {
	cash, err := h.store.SumCashOrdersSince(ctx, session.OpenedAt)
	if err != nil {
		return decimal.Zero, err
	}
	movements, err := h.store.SumMovementsBySession(ctx, session.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return numericToDecimal(session.OpeningAmount).
		Add(numericToDecimal(cash)).
		Add(numericToDecimal(movements)), nil
}
