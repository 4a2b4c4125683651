package livefeed

import (
	"time"

	"github.com/fornalha-pos/api/internal/enum"
)

// Order is the consolidated view of one order as seen by live screens.
// All consumers of the feed share this single shape; marketplace origin is an
// explicit field rather than an implied "has external reference".
type Order struct {
	ID                string    `json:"id"`
	Number            string    `json:"order_number"`
	ExternalReference *string   `json:"external_reference"`
	Origin            string    `json:"origin"`
	Status            string    `json:"status"`
	OrderType         string    `json:"order_type"`
	PaymentMethod     string    `json:"payment_method"`
	CustomerName      string    `json:"customer_name"`
	CustomerPhone     string    `json:"customer_phone"`
	DeliveryAddress   *string   `json:"delivery_address"`
	Courier           *string   `json:"courier"`
	TotalAmount       string    `json:"total_amount"`
	Items             []Item    `json:"items"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Item is one line of an order.
type Item struct {
	ComboID      string   `json:"combo_id"`
	ComboName    string   `json:"combo_name"`
	Quantity     int      `json:"quantity"`
	Flavors      []string `json:"flavors"`
	Observations *string  `json:"observations"`
}

// normalize fills derived fields after decoding.
func (o *Order) normalize() {
	if o.ExternalReference != nil && *o.ExternalReference != "" {
		o.Origin = enum.OriginMarketplace
	} else if o.Origin == "" {
		o.Origin = enum.OriginDirect
	}
}

// CourierName returns the assigned courier or the empty string.
func (o *Order) CourierName() string {
	if o.Courier == nil {
		return ""
	}
	return *o.Courier
}

// statusLabels maps lifecycle states to board labels.
var statusLabels = map[string]string{
	enum.OrderStatusPending:        "Pendente",
	enum.OrderStatusConfirmed:      "Confirmado",
	enum.OrderStatusPreparing:      "Em preparo",
	enum.OrderStatusReady:          "Pronto",
	enum.OrderStatusOutForDelivery: "Saiu para entrega",
	enum.OrderStatusDelivered:      "Entregue",
	enum.OrderStatusCancelled:      "Cancelado",
}

// StatusLabel returns the display label for a lifecycle state.
// Unknown states fall back to the raw value.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// StatusProgress returns the percentage of the lifecycle completed, derived
// from the status index. CANCELLED reports 0.
func StatusProgress(status string) int {
	if status == enum.OrderStatusCancelled {
		return 0
	}
	for i, s := range enum.OrderStatuses {
		if s == status {
			// DELIVERED (index 5) is 100%.
			return i * 100 / 5
		}
	}
	return 0
}
