package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fornalha-pos/api/internal/cart"
	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/service"
)

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListClosedOrders(ctx context.Context, limit, offset int32) ([]database.Order, error)
	ListMarketplaceOrders(ctx context.Context, limit int32) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderCourier(ctx context.Context, arg database.UpdateOrderCourierParams) (database.Order, error)
	GetIdempotencyRecord(ctx context.Context, key uuid.UUID) (database.IdempotencyRecord, error)
	CreateIdempotencyRecord(ctx context.Context, arg database.CreateIdempotencyRecordParams) error
}

// OrderCreator runs the checkout flow. Satisfied by *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// Broadcaster pushes order events to connected live screens.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	store   OrderStore
	creator OrderCreator
	hub     Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, creator OrderCreator, hub Broadcaster) *OrderHandler {
	return &OrderHandler{store: store, creator: creator, hub: hub}
}

// RegisterRoutes registers the authenticated order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/history", h.History)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/reject", h.Reject)
	r.Put("/{id}", h.Update)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType       string `json:"order_type"`
	PaymentMethod   string `json:"payment_method"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryAreaID  string `json:"delivery_area_id"`
	Notes           string `json:"notes"`
	// Items accepts both the array shape and the legacy comboId→quantity map.
	Items json.RawMessage `json:"items"`
}

type updateOrderRequest struct {
	Status  *string `json:"status"`
	Courier *string `json:"courier"`
}

type orderItemResponse struct {
	ComboID      uuid.UUID `json:"combo_id"`
	ComboName    string    `json:"combo_name"`
	Quantity     int32     `json:"quantity"`
	UnitPrice    string    `json:"unit_price"`
	Flavors      []string  `json:"flavors"`
	Observations *string   `json:"observations"`
	Subtotal     string    `json:"subtotal"`
}

type orderResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	ExternalReference *string             `json:"external_reference"`
	Origin            string              `json:"origin"`
	Status            string              `json:"status"`
	OrderType         string              `json:"order_type"`
	PaymentMethod     string              `json:"payment_method"`
	CustomerName      string              `json:"customer_name"`
	CustomerPhone     string              `json:"customer_phone"`
	DeliveryAddress   *string             `json:"delivery_address"`
	DeliveryFee       string              `json:"delivery_fee"`
	Courier           *string             `json:"courier"`
	Notes             *string             `json:"notes"`
	Subtotal          string              `json:"subtotal"`
	TotalAmount       string              `json:"total_amount"`
	Items             []orderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ComboID:   it.ComboID,
		ComboName: it.ComboName,
		Quantity:  it.Quantity,
		UnitPrice: numericString(it.UnitPrice),
		Flavors:   it.Flavors,
		Subtotal:  numericString(it.Subtotal),
	}
	if resp.Flavors == nil {
		resp.Flavors = []string{}
	}
	if it.Observations.Valid {
		resp.Observations = &it.Observations.String
	}
	return resp
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Origin:        enum.OriginDirect,
		Status:        o.Status,
		OrderType:     o.OrderType,
		PaymentMethod: o.PaymentMethod,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		DeliveryFee:   numericString(o.DeliveryFee),
		Subtotal:      numericString(o.Subtotal),
		TotalAmount:   numericString(o.TotalAmount),
		Items:         make([]orderItemResponse, len(items)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.ExternalReference.Valid {
		resp.ExternalReference = &o.ExternalReference.String
		resp.Origin = enum.OriginMarketplace
	}
	if o.DeliveryAddress.Valid {
		resp.DeliveryAddress = &o.DeliveryAddress.String
	}
	if o.Courier.Valid {
		resp.Courier = &o.Courier.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}
	return resp
}

func (h *OrderHandler) orderWithItems(ctx context.Context, o database.Order) orderResponse {
	items, err := h.store.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		log.Printf("ERROR: list order items for %s: %v", o.ID, err)
		items = nil
	}
	return toOrderResponse(o, items)
}

func (h *OrderHandler) broadcast(eventType string, resp orderResponse) {
	if h.hub != nil {
		h.hub.Broadcast(eventType, resp)
	}
}

// --- Checkout ---

// Create handles the public checkout. Prices are always resolved server-side;
// nothing the client sends about money is trusted.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines, err := cart.Decode(req.Items)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(lines))
	for i, l := range lines {
		items[i] = service.CreateOrderItemRequest{
			ComboID:      l.ComboID,
			Quantity:     l.Quantity,
			Flavors:      l.Flavors,
			Observations: l.Observations,
		}
	}

	result, err := h.creator.CreateOrder(r.Context(), service.CreateOrderRequest{
		OrderType:       req.OrderType,
		PaymentMethod:   req.PaymentMethod,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryAreaID:  req.DeliveryAreaID,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		if service.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.broadcast("order_created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// --- Reads ---

// List returns orders as a bare JSON array. Live screens poll this endpoint
// and treat any non-array body as a protocol violation, so the shape is part
// of the contract.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      parseLimit(r.URL.Query().Get("limit"), 100, 200),
		Offset:     parseOffset(r.URL.Query().Get("offset")),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !enum.IsValidOrderStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: status, Valid: true}
	}
	if origin := r.URL.Query().Get("origin"); origin != "" {
		if origin != enum.OriginDirect && origin != enum.OriginMarketplace {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid origin"})
			return
		}
		params.Origin = pgtype.Text{String: origin, Valid: true}
	}
	if from := r.URL.Query().Get("start_date"); from != "" {
		t, err := parseDate(from)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if to := r.URL.Query().Get("end_date"); to != "" {
		t, err := parseDate(to)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date"})
			return
		}
		// end_date is inclusive: compare against the next midnight.
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.writeOrderList(w, r, orders)
}

// History returns terminal (DELIVERED/CANCELLED) orders, newest first.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 200)
	offset := parseOffset(r.URL.Query().Get("offset"))

	orders, err := h.store.ListClosedOrders(r.Context(), limit, offset)
	if err != nil {
		log.Printf("ERROR: list order history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.writeOrderList(w, r, orders)
}

// Marketplace returns marketplace-origin orders.
func (h *OrderHandler) Marketplace(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 200)

	orders, err := h.store.ListMarketplaceOrders(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: list marketplace orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.writeOrderList(w, r, orders)
}

func (h *OrderHandler) writeOrderList(w http.ResponseWriter, r *http.Request, orders []database.Order) {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = h.orderWithItems(r.Context(), o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, h.orderWithItems(r.Context(), order))
}

// --- Accept / Reject ---

// Accept confirms a PENDING order. Any other state answers 400 with the
// "already processed" message the live screens surface verbatim.
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.acknowledge(w, r, "accept")
}

// Reject cancels a non-terminal order.
func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.acknowledge(w, r, "reject")
}

func (h *OrderHandler) acknowledge(w http.ResponseWriter, r *http.Request, action string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid order ID"})
		return
	}

	h.withIdempotency(w, r, id, action, func(ctx context.Context) (int, any) {
		order, err := h.store.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return http.StatusNotFound, map[string]any{"success": false, "message": "Pedido não encontrado"}
			}
			log.Printf("ERROR: %s order lookup: %v", action, err)
			return http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"}
		}

		var target, doneMessage string
		switch action {
		case "accept":
			if order.Status != enum.OrderStatusPending {
				return http.StatusBadRequest, map[string]any{"success": false, "message": "Order already processed"}
			}
			target, doneMessage = enum.OrderStatusConfirmed, "Pedido confirmado"
		case "reject":
			if enum.IsTerminalStatus(order.Status) {
				return http.StatusBadRequest, map[string]any{"success": false, "message": "Order already processed"}
			}
			target, doneMessage = enum.OrderStatusCancelled, "Pedido cancelado"
		}

		updated, err := h.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         id,
			Status:     target,
			PrevStatus: order.Status,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Status moved between our read and write.
				return http.StatusBadRequest, map[string]any{"success": false, "message": "Order already processed"}
			}
			log.Printf("ERROR: %s order: %v", action, err)
			return http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"}
		}

		h.broadcast("order_updated", h.orderWithItems(ctx, updated))
		return http.StatusOK, map[string]any{"success": true, "message": doneMessage}
	})
}

// --- Update (status / courier) ---

// Update applies a status transition and/or a courier assignment. Errors use
// the {message} body shape this endpoint has always had.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid order ID"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.Status == nil && req.Courier == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "nothing to update"})
		return
	}

	h.withIdempotency(w, r, id, "update", func(ctx context.Context) (int, any) {
		order, err := h.store.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return http.StatusNotFound, map[string]string{"message": "Pedido não encontrado"}
			}
			log.Printf("ERROR: update order lookup: %v", err)
			return http.StatusInternalServerError, map[string]string{"message": "internal server error"}
		}

		if req.Status != nil && *req.Status != order.Status {
			if !enum.IsValidOrderStatus(*req.Status) {
				return http.StatusBadRequest, map[string]string{"message": "invalid status"}
			}
			if !enum.CanTransition(order.Status, *req.Status) {
				return http.StatusConflict, map[string]string{"message": "Transição de status inválida"}
			}
			order, err = h.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
				ID:         id,
				Status:     *req.Status,
				PrevStatus: order.Status,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return http.StatusConflict, map[string]string{"message": "Pedido alterado por outro usuário, atualize e tente novamente"}
				}
				log.Printf("ERROR: update order status: %v", err)
				return http.StatusInternalServerError, map[string]string{"message": "internal server error"}
			}
		}

		if req.Courier != nil {
			order, err = h.store.UpdateOrderCourier(ctx, database.UpdateOrderCourierParams{
				ID:      id,
				Courier: textOrNull(*req.Courier),
			})
			if err != nil {
				log.Printf("ERROR: update order courier: %v", err)
				return http.StatusInternalServerError, map[string]string{"message": "internal server error"}
			}
		}

		resp := h.orderWithItems(ctx, order)
		h.broadcast("order_updated", resp)
		return http.StatusOK, resp
	})
}

// --- Idempotency ---

// withIdempotency replays the recorded outcome for a repeated Idempotency-Key
// instead of re-running the mutation. Keys are client-generated UUIDs; a
// request without the header runs unconditionally.
func (h *OrderHandler) withIdempotency(w http.ResponseWriter, r *http.Request, orderID uuid.UUID, action string, fn func(ctx context.Context) (int, any)) {
	header := r.Header.Get("Idempotency-Key")
	if header == "" {
		status, body := fn(r.Context())
		writeJSON(w, status, body)
		return
	}

	key, err := uuid.Parse(header)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid Idempotency-Key"})
		return
	}

	if rec, err := h.store.GetIdempotencyRecord(r.Context(), key); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(rec.StatusCode))
		w.Write(rec.Response)
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: idempotency lookup: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}

	status, body := fn(r.Context())

	// Server-side failures are not recorded: the client may retry the same
	// key and succeed.
	if status < http.StatusInternalServerError {
		raw, err := json.Marshal(body)
		if err == nil {
			err = h.store.CreateIdempotencyRecord(r.Context(), database.CreateIdempotencyRecordParams{
				Key:        key,
				OrderID:    orderID,
				Action:     action,
				StatusCode: int32(status),
				Response:   raw,
			})
		}
		if err != nil {
			log.Printf("ERROR: record idempotency key: %v", err)
		}
	}

	writeJSON(w, status, body)
}

// --- Query-param helpers ---

func parseLimit(raw string, def, max int32) int32 {
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n <= 0 {
		return def
	}
	if int32(n) > max {
		return max
	}
	return int32(n)
}

func parseOffset(raw string) int32 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return 0
	}
	return int32(n)
}
