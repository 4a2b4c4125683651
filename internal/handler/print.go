package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/printer"
)

// ReceiptPublisher enqueues a formatted receipt for the native print helper.
// Satisfied by *printer.Publisher.
type ReceiptPublisher interface {
	Publish(ctx context.Context, receipt printer.Receipt) error
}

// PrintStore defines the database methods needed by the print handler.
type PrintStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// PrintHandler formats receipts and pushes them to the print queue.
type PrintHandler struct {
	store     PrintStore
	publisher ReceiptPublisher
}

// NewPrintHandler creates a new PrintHandler.
func NewPrintHandler(store PrintStore, publisher ReceiptPublisher) *PrintHandler {
	return &PrintHandler{store: store, publisher: publisher}
}

type printRequest struct {
	OrderID   string `json:"order_id"`
	PrintType string `json:"print_type"`
}

// Print builds the receipt payload, queues it, and returns it so the caller
// can preview what will come out of the printer.
func (h *PrintHandler) Print(w http.ResponseWriter, r *http.Request) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
		return
	}

	if req.PrintType != enum.PrintTypeKitchen && req.PrintType != enum.PrintTypeCustomer {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid print_type"})
		return
	}
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid order_id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Pedido não encontrado"})
			return
		}
		log.Printf("ERROR: print order lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: print order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"})
		return
	}

	receipt := printer.FormatReceipt(req.PrintType, order, items)
	if err := h.publisher.Publish(r.Context(), receipt); err != nil {
		log.Printf("ERROR: publish receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "fila de impressão indisponível"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Impressão enviada",
		"receipt": receipt,
	})
}
