package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fornalha-pos/api/internal/bot"
	"github.com/fornalha-pos/api/internal/database"
)

// ChatbotStore defines the database methods needed by the chatbot handler.
type ChatbotStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// ChatbotHandler relays customer messages through the chat channel.
type ChatbotHandler struct {
	store  ChatbotStore
	sender bot.Sender
}

// NewChatbotHandler creates a new ChatbotHandler.
func NewChatbotHandler(store ChatbotStore, sender bot.Sender) *ChatbotHandler {
	return &ChatbotHandler{store: store, sender: sender}
}

type chatbotSendRequest struct {
	OrderID string `json:"order_id"`
	Phone   string `json:"phone"`
	Trigger string `json:"trigger"`
}

// Send posts the triggered message. Fire and forget: delivery failures are
// logged but still acknowledged, the POS must not block on the chat channel.
func (h *ChatbotHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatbotSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
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
		log.Printf("ERROR: chatbot order lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"})
		return
	}

	message := bot.MessageFor(req.Trigger, bot.OrderInfo{
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		Phone:        order.CustomerPhone,
	})
	if message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid trigger"})
		return
	}

	phone := req.Phone
	if phone == "" {
		phone = order.CustomerPhone
	}
	text := fmt.Sprintf("📱 %s\n%s", phone, message)

	if err := h.sender.Send(r.Context(), text); err != nil {
		log.Printf("ERROR: chatbot send: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Mensagem enviada"})
}
