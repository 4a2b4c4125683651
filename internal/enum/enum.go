package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "PENDING"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// OrderStatuses lists every lifecycle state in progression order.
// The index of a status doubles as its progress position for display.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// statusTransitions maps each status to the set of statuses it may advance to.
// DELIVERED and CANCELLED are terminal.
var statusTransitions = map[string][]string{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// IsValidOrderStatus reports whether s is a known lifecycle state.
func IsValidOrderStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether s admits no further transitions.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ── Order attributes (CHECK constrained in DB) ──

const (
	OrderTypeDelivery = "DELIVERY"
	OrderTypePickup   = "PICKUP"
)

const (
	PaymentMethodPix        = "PIX"
	PaymentMethodCreditCard = "CREDIT_CARD"
	PaymentMethodDebitCard  = "DEBIT_CARD"
	PaymentMethodCash       = "CASH"
)

// ── Order origin (derived from external_reference, exposed explicitly) ──

const (
	OriginDirect      = "DIRECT"
	OriginMarketplace = "MARKETPLACE"
)

// ── Back office ──

const (
	UserRoleAdmin     = "ADMIN"
	UserRoleAttendant = "ATTENDANT"
)

const (
	MovementWithdrawal = "WITHDRAWAL"
	MovementSupply     = "SUPPLY"
)

// ── Configurable labels (no DB constraint) ──

const (
	PrintTypeKitchen  = "KITCHEN"
	PrintTypeCustomer = "CUSTOMER"
)

const (
	TriggerOrderConfirmed      = "ORDER_CONFIRMED"
	TriggerOrderReady          = "ORDER_READY"
	TriggerOrderOutForDelivery = "ORDER_OUT_FOR_DELIVERY"
	TriggerOrderCancelled      = "ORDER_CANCELLED"
)
