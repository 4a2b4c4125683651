package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderSeqRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidComboID       = errors.New("invalid combo_id")
	ErrComboNotFound        = errors.New("combo not found")
	ErrFlavorNotFound       = errors.New("flavor not found")
	ErrTooManyFlavors       = errors.New("too many flavors for combo")
	ErrCustomerRequired     = errors.New("customer name and phone are required")
	ErrAddressRequired      = errors.New("delivery_address is required for DELIVERY orders")
	ErrAreaRequired         = errors.New("delivery_area_id is required for DELIVERY orders")
	ErrInvalidAreaID        = errors.New("invalid delivery_area_id")
	ErrAreaNotFound         = errors.New("delivery area not found")
	ErrDuplicateReference   = errors.New("external reference already imported")
)

var validationErrs = []error{
	ErrEmptyItems, ErrInvalidOrderType, ErrInvalidPaymentMethod, ErrInvalidQuantity,
	ErrInvalidComboID, ErrComboNotFound, ErrFlavorNotFound, ErrTooManyFlavors,
	ErrCustomerRequired, ErrAddressRequired, ErrAreaRequired, ErrInvalidAreaID,
	ErrAreaNotFound, ErrDuplicateReference,
}

// IsValidationError reports whether err is a client-input error rather than
// an infrastructure failure.
func IsValidationError(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderSeq(ctx context.Context) (int32, error)
	GetComboForOrder(ctx context.Context, id uuid.UUID) (database.GetComboForOrderRow, error)
	GetFlavorByName(ctx context.Context, name string) (database.Flavor, error)
	GetDeliveryArea(ctx context.Context, id uuid.UUID) (database.DeliveryArea, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	OrderType         string
	PaymentMethod     string
	CustomerName      string
	CustomerPhone     string
	DeliveryAddress   string
	DeliveryAreaID    string
	Notes             string
	ExternalReference string // set only by the marketplace importer
	Items             []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	ComboID      string
	Quantity     int32
	Flavors      []string
	Observations string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles checkout business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// processedItem holds a prepared order item insert.
type processedItem struct {
	params database.CreateOrderItemParams
}

// CreateOrder validates, resolves prices server-side, and creates an order
// atomically. Retries up to maxOrderSeqRetries times on order_seq unique
// constraint violations (concurrent transactions racing on the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.CustomerName == "" || req.CustomerPhone == "" {
		return nil, ErrCustomerRequired
	}
	if req.OrderType == enum.OrderTypeDelivery {
		if req.DeliveryAddress == "" {
			return nil, ErrAddressRequired
		}
		// Marketplace orders carry the marketplace's own delivery logistics,
		// so no local area is required for them.
		if req.DeliveryAreaID == "" && req.ExternalReference == "" {
			return nil, ErrAreaRequired
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderSeqRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderSeqConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderSeqConflict checks if the error is a unique constraint violation
// on the order sequence (pgconn error code 23505).
func isOrderSeqConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_seq_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextSeq, err := store.GetNextOrderSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order seq: %w", err)
	}
	orderNumber := fmt.Sprintf("FRN-%05d", nextSeq)

	// --- Process items: validate + resolve prices ---
	subtotal := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		comboID, err := uuid.Parse(item.ComboID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidComboID)
		}

		combo, err := store.GetComboForOrder(ctx, comboID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrComboNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get combo: %w", i, err)
		}

		if int32(len(item.Flavors)) > combo.MaxFlavors {
			return nil, fmt.Errorf("item[%d]: %w (max %d)", i, ErrTooManyFlavors, combo.MaxFlavors)
		}
		for j, name := range item.Flavors {
			if _, err := store.GetFlavorByName(ctx, name); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d].flavors[%d]: %w: %q", i, j, ErrFlavorNotFound, name)
				}
				return nil, fmt.Errorf("item[%d].flavors[%d]: get flavor: %w", i, j, err)
			}
		}

		unitPrice := numericToDecimal(combo.Price)
		lineSubtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineSubtotal)

		observations := pgtype.Text{}
		if item.Observations != "" {
			observations = pgtype.Text{String: item.Observations, Valid: true}
		}

		flavors := item.Flavors
		if flavors == nil {
			flavors = []string{}
		}

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				ComboID:      comboID,
				ComboName:    combo.Name,
				Quantity:     item.Quantity,
				UnitPrice:    decimalToNumeric(unitPrice),
				Flavors:      flavors,
				Observations: observations,
				Subtotal:     decimalToNumeric(lineSubtotal),
			},
		})
	}

	// --- Resolve delivery fee ---
	deliveryAreaID := pgtype.UUID{}
	deliveryFee := pgtype.Numeric{}
	deliveryAddress := pgtype.Text{}
	total := subtotal
	if req.OrderType == enum.OrderTypeDelivery {
		deliveryAddress = pgtype.Text{String: req.DeliveryAddress, Valid: true}
		if req.DeliveryAreaID != "" {
			aid, err := uuid.Parse(req.DeliveryAreaID)
			if err != nil {
				return nil, ErrInvalidAreaID
			}
			area, err := store.GetDeliveryArea(ctx, aid)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, ErrAreaNotFound
				}
				return nil, fmt.Errorf("get delivery area: %w", err)
			}
			fee := numericToDecimal(area.Fee)
			total = total.Add(fee)
			deliveryAreaID = pgtype.UUID{Bytes: aid, Valid: true}
			deliveryFee = decimalToNumeric(fee)
		}
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	externalReference := pgtype.Text{}
	if req.ExternalReference != "" {
		externalReference = pgtype.Text{String: req.ExternalReference, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderSeq:          nextSeq,
		OrderNumber:       orderNumber,
		ExternalReference: externalReference,
		Status:            enum.OrderStatusPending,
		OrderType:         req.OrderType,
		PaymentMethod:     req.PaymentMethod,
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		DeliveryAddress:   deliveryAddress,
		DeliveryAreaID:    deliveryAreaID,
		DeliveryFee:       deliveryFee,
		Notes:             notes,
		Subtotal:          decimalToNumeric(subtotal),
		TotalAmount:       decimalToNumeric(total),
	})
	if err != nil {
		if isExternalReferenceConflict(err) {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	var created []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: created}, nil
}

func isExternalReferenceConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_external_reference_key"
	}
	return false
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDelivery, enum.OrderTypePickup:
		return nil
	}
	return ErrInvalidOrderType
}

func validatePaymentMethod(s string) error {
	switch s {
	case enum.PaymentMethodPix, enum.PaymentMethodCreditCard,
		enum.PaymentMethodDebitCard, enum.PaymentMethodCash:
		return nil
	}
	return ErrInvalidPaymentMethod
}

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
