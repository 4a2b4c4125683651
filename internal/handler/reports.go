package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fornalha-pos/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
type ReportStore interface {
	GetSalesSummary(ctx context.Context, arg database.SalesSummaryParams) (database.SalesSummaryRow, error)
	GetPaymentSummary(ctx context.Context, arg database.SalesSummaryParams) ([]database.PaymentSummaryRow, error)
	GetTopCombos(ctx context.Context, arg database.TopCombosParams) ([]database.TopCombosRow, error)
}

// ReportHandler handles back-office report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/payments", h.Payments)
	r.Get("/top-combos", h.TopCombos)
}

type salesSummaryResponse struct {
	OrderCount     int64  `json:"order_count"`
	CancelledCount int64  `json:"cancelled_count"`
	GrossRevenue   string `json:"gross_revenue"`
	DeliveryFees   string `json:"delivery_fees"`
	AverageTicket  string `json:"average_ticket"`
}

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int64  `json:"order_count"`
	TotalAmount   string `json:"total_amount"`
}

type topComboResponse struct {
	ComboID      uuid.UUID `json:"combo_id"`
	ComboName    string    `json:"combo_name"`
	QuantitySold int64     `json:"quantity_sold"`
	Revenue      string    `json:"revenue"`
}

// dateRange reads the optional start_date / end_date query params.
// end_date is inclusive.
func dateRange(r *http.Request) (database.SalesSummaryParams, string) {
	var params database.SalesSummaryParams
	if from := r.URL.Query().Get("start_date"); from != "" {
		t, err := parseDate(from)
		if err != nil {
			return params, "invalid start_date"
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if to := r.URL.Query().Get("end_date"); to != "" {
		t, err := parseDate(to)
		if err != nil {
			return params, "invalid end_date"
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}
	return params, ""
}

// Sales returns order counts and revenue for the range.
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	params, msg := dateRange(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	row, err := h.store.GetSalesSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: sales summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	gross := numericToDecimal(row.GrossRevenue)
	resp := salesSummaryResponse{
		OrderCount:     row.OrderCount,
		CancelledCount: row.CancelledCount,
		GrossRevenue:   gross.StringFixed(2),
		DeliveryFees:   numericString(row.DeliveryFees),
		AverageTicket:  "0.00",
	}
	if row.OrderCount > 0 {
		resp.AverageTicket = gross.DivRound(decimal.NewFromInt(row.OrderCount), 2).StringFixed(2)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Payments returns totals grouped by payment method.
func (h *ReportHandler) Payments(w http.ResponseWriter, r *http.Request) {
	params, msg := dateRange(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: payment summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod: row.PaymentMethod,
			OrderCount:    row.OrderCount,
			TotalAmount:   numericString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TopCombos returns best-selling combos for the range.
func (h *ReportHandler) TopCombos(w http.ResponseWriter, r *http.Request) {
	params, msg := dateRange(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rows, err := h.store.GetTopCombos(r.Context(), database.TopCombosParams{
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Limit:     parseLimit(r.URL.Query().Get("limit"), 10, 50),
	})
	if err != nil {
		log.Printf("ERROR: top combos: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]topComboResponse, len(rows))
	for i, row := range rows {
		resp[i] = topComboResponse{
			ComboID:      row.ComboID,
			ComboName:    row.ComboName,
			QuantitySold: row.QuantitySold,
			Revenue:      numericString(row.Revenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
