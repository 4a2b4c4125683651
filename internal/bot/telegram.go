// Package bot sends customer-facing order notifications through the
// pizzeria's Telegram channel.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/fornalha-pos/api/internal/enum"
)

// Sender delivers one message to the chat channel.
// Satisfied by *Telegram; handlers hold this interface so tests can fake it.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Telegram is a Sender backed by the Bot API, posting to one configured chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegram authenticates the bot token.
func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info("telegram bot connected", zap.String("username", api.Self.UserName))
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// Send posts the text to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Disabled stands in when no bot token is configured. Sends fail; the
// chatbot endpoint logs the failure and acknowledges anyway.
type Disabled struct{}

func (Disabled) Send(context.Context, string) error {
	return fmt.Errorf("chat channel not configured")
}

// OrderInfo carries the fields the message templates need.
type OrderInfo struct {
	OrderNumber  string
	CustomerName string
	Phone        string
}

// MessageFor renders the customer message for a lifecycle trigger.
// Unknown triggers return the empty string.
func MessageFor(trigger string, order OrderInfo) string {
	switch trigger {
	case enum.TriggerOrderConfirmed:
		return fmt.Sprintf("Pedido %s confirmado! Já estamos preparando, %s. 🍕",
			order.OrderNumber, order.CustomerName)
	case enum.TriggerOrderReady:
		return fmt.Sprintf("Pedido %s pronto! Pode vir retirar, %s.",
			order.OrderNumber, order.CustomerName)
	case enum.TriggerOrderOutForDelivery:
		return fmt.Sprintf("Pedido %s saiu para entrega! Chega em breve, %s. 🛵",
			order.OrderNumber, order.CustomerName)
	case enum.TriggerOrderCancelled:
		return fmt.Sprintf("Pedido %s foi cancelado. Qualquer dúvida fale com a gente, %s.",
			order.OrderNumber, order.CustomerName)
	}
	return ""
}
