// Package printer builds receipt payloads and hands them to the print queue.
// A native helper next to the thermal printer consumes the queue; this side
// only formats and publishes.
package printer

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
)

const lineWidth = 42

// Receipt is the payload published to the print queue.
type Receipt struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PrintType   string    `json:"print_type"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// FormatReceipt renders an order as fixed-width printer text. KITCHEN copies
// carry preparation detail and no money; CUSTOMER copies carry prices and
// payment.
func FormatReceipt(printType string, order database.Order, items []database.OrderItem) Receipt {
	var b strings.Builder

	center(&b, "FORNALHA PIZZARIA")
	if printType == enum.PrintTypeKitchen {
		center(&b, "*** COZINHA ***")
	}
	rule(&b)
	line(&b, "Pedido", order.OrderNumber)
	line(&b, "Data", order.CreatedAt.Format("02/01/2006 15:04"))
	line(&b, "Tipo", orderTypeLabel(order.OrderType))
	if order.ExternalReference.Valid {
		line(&b, "Ref. marketplace", order.ExternalReference.String)
	}
	rule(&b)

	for _, it := range items {
		if printType == enum.PrintTypeCustomer {
			line(&b, fmt.Sprintf("%dx %s", it.Quantity, it.ComboName), money(it.Subtotal))
		} else {
			b.WriteString(fmt.Sprintf("%dx %s\n", it.Quantity, it.ComboName))
		}
		for _, flavor := range it.Flavors {
			b.WriteString("   - " + flavor + "\n")
		}
		if it.Observations.Valid {
			b.WriteString("   OBS: " + it.Observations.String + "\n")
		}
	}
	rule(&b)

	if printType == enum.PrintTypeCustomer {
		line(&b, "Subtotal", money(order.Subtotal))
		if order.DeliveryFee.Valid {
			line(&b, "Entrega", money(order.DeliveryFee))
		}
		line(&b, "TOTAL", money(order.TotalAmount))
		line(&b, "Pagamento", paymentLabel(order.PaymentMethod))
		rule(&b)
	}

	line(&b, "Cliente", order.CustomerName)
	line(&b, "Telefone", order.CustomerPhone)
	if order.DeliveryAddress.Valid {
		b.WriteString("Endereço: " + order.DeliveryAddress.String + "\n")
	}
	if order.Notes.Valid {
		b.WriteString("Obs: " + order.Notes.String + "\n")
	}

	if printType == enum.PrintTypeCustomer {
		rule(&b)
		center(&b, "Obrigado pela preferência!")
	}

	return Receipt{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		PrintType:   printType,
		Content:     b.String(),
		CreatedAt:   time.Now().UTC(),
	}
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
}

func center(b *strings.Builder, s string) {
	pad := (lineWidth - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad) + s + "\n")
}

// line writes "label ....... value" padded to the printer width.
func line(b *strings.Builder, label, value string) {
	gap := lineWidth - len([]rune(label)) - len([]rune(value))
	if gap < 1 {
		gap = 1
	}
	b.WriteString(label + strings.Repeat(" ", gap) + value + "\n")
}

func money(n pgtype.Numeric) string {
	if !n.Valid {
		return "R$ 0.00"
	}
	v, err := n.Value()
	if err != nil || v == nil {
		return "R$ 0.00"
	}
	d, err := decimal.NewFromString(v.(string))
	if err != nil {
		return "R$ 0.00"
	}
	return "R$ " + d.StringFixed(2)
}

func orderTypeLabel(t string) string {
	if t == enum.OrderTypePickup {
		return "Retirada"
	}
	return "Entrega"
}

func paymentLabel(m string) string {
	switch m {
	case enum.PaymentMethodPix:
		return "PIX"
	case enum.PaymentMethodCreditCard:
		return "Cartão de crédito"
	case enum.PaymentMethodDebitCard:
		return "Cartão de débito"
	case enum.PaymentMethodCash:
		return "Dinheiro"
	}
	return m
}
