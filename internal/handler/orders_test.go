package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/service"
)

// mockOrderStore implements OrderStore with overridable functions.
type mockOrderStore struct {
	getOrderFn                func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersFn              func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listClosedOrdersFn        func(ctx context.Context, limit, offset int32) ([]database.Order, error)
	listMarketplaceOrdersFn   func(ctx context.Context, limit int32) ([]database.Order, error)
	listOrderItemsFn          func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	updateOrderStatusFn       func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updateOrderCourierFn      func(ctx context.Context, arg database.UpdateOrderCourierParams) (database.Order, error)
	getIdempotencyRecordFn    func(ctx context.Context, key uuid.UUID) (database.IdempotencyRecord, error)
	createIdempotencyRecordFn func(ctx context.Context, arg database.CreateIdempotencyRecordParams) error
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}

func (m *mockOrderStore) ListClosedOrders(ctx context.Context, limit, offset int32) ([]database.Order, error) {
	return m.listClosedOrdersFn(ctx, limit, offset)
}

func (m *mockOrderStore) ListMarketplaceOrders(ctx context.Context, limit int32) ([]database.Order, error) {
	return m.listMarketplaceOrdersFn(ctx, limit)
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsFn == nil {
		return nil, nil
	}
	return m.listOrderItemsFn(ctx, orderID)
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}

func (m *mockOrderStore) UpdateOrderCourier(ctx context.Context, arg database.UpdateOrderCourierParams) (database.Order, error) {
	return m.updateOrderCourierFn(ctx, arg)
}

func (m *mockOrderStore) GetIdempotencyRecord(ctx context.Context, key uuid.UUID) (database.IdempotencyRecord, error) {
	if m.getIdempotencyRecordFn == nil {
		return database.IdempotencyRecord{}, pgx.ErrNoRows
	}
	return m.getIdempotencyRecordFn(ctx, key)
}

func (m *mockOrderStore) CreateIdempotencyRecord(ctx context.Context, arg database.CreateIdempotencyRecordParams) error {
	if m.createIdempotencyRecordFn == nil {
		return nil
	}
	return m.createIdempotencyRecordFn(ctx, arg)
}

type mockOrderCreator struct {
	createOrderFn func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderCreator) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createOrderFn(ctx, req)
}

type mockBroadcaster struct {
	events []string
}

func (m *mockBroadcaster) Broadcast(eventType string, _ any) {
	m.events = append(m.events, eventType)
}

func testNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func testDBOrder(t *testing.T, status string) database.Order {
	t.Helper()
	return database.Order{
		ID:            uuid.New(),
		OrderSeq:      42,
		OrderNumber:   "FRN-00042",
		Status:        status,
		OrderType:     enum.OrderTypePickup,
		PaymentMethod: enum.PaymentMethodCash,
		CustomerName:  "Maria Souza",
		CustomerPhone: "11988887777",
		Subtotal:      testNumeric(t, "45.90"),
		TotalAmount:   testNumeric(t, "45.90"),
	}
}

func orderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		h.RegisterRoutes(r)
	})
	r.Get("/marketplace/orders", h.Marketplace)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- List ---

func TestListOrdersReturnsBareArray(t *testing.T) {
	store := &mockOrderStore{
		listOrdersFn: func(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			if !arg.ActiveOnly {
				t.Error("expected ActiveOnly filter")
			}
			return []database.Order{testDBOrder(t, enum.OrderStatusPending)}, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodGet, "/orders?active=true", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := bytes.TrimSpace(rec.Body.Bytes())
	if len(body) == 0 || body[0] != '[' {
		t.Fatalf("body is not a bare JSON array: %s", body)
	}

	var orders []orderResponse
	if err := json.Unmarshal(body, &orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderNumber != "FRN-00042" {
		t.Fatalf("orders = %+v", orders)
	}
	if orders[0].Origin != enum.OriginDirect {
		t.Errorf("origin = %q, want %q", orders[0].Origin, enum.OriginDirect)
	}
}

func TestListOrdersEmptyIsArrayNotNull(t *testing.T) {
	store := &mockOrderStore{
		listOrdersFn: func(_ context.Context, _ database.ListOrdersParams) ([]database.Order, error) {
			return nil, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodGet, "/orders", nil, nil)
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("body = %s, want []", got)
	}
}

func TestListOrdersRejectsBadStatus(t *testing.T) {
	h := NewOrderHandler(&mockOrderStore{}, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodGet, "/orders?status=BOGUS", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListOrdersDateRangeIsInclusive(t *testing.T) {
	var got database.ListOrdersParams
	store := &mockOrderStore{
		listOrdersFn: func(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			got = arg
			return nil, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodGet, "/orders?start_date=2026-08-01&end_date=2026-08-01", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !got.StartDate.Valid || !got.EndDate.Valid {
		t.Fatal("date filters not applied")
	}
	if got.EndDate.Time.Day() != 2 {
		t.Errorf("end_date upper bound = %v, want next midnight", got.EndDate.Time)
	}
}

func TestMarketplaceOrdersMarkedByOrigin(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	order.ExternalReference = pgtype.Text{String: "mkt-1", Valid: true}
	store := &mockOrderStore{
		listMarketplaceOrdersFn: func(_ context.Context, _ int32) ([]database.Order, error) {
			return []database.Order{order}, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodGet, "/marketplace/orders", nil, nil)
	var orders []orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if orders[0].Origin != enum.OriginMarketplace {
		t.Errorf("origin = %q, want %q", orders[0].Origin, enum.OriginMarketplace)
	}
}

// --- Checkout ---

func TestCreateOrderAcceptsArrayCart(t *testing.T) {
	comboID := uuid.NewString()
	var got service.CreateOrderRequest
	creator := &mockOrderCreator{
		createOrderFn: func(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			got = req
			return &service.CreateOrderResult{Order: testDBOrder(t, enum.OrderStatusPending)}, nil
		},
	}
	hub := &mockBroadcaster{}
	h := NewOrderHandler(&mockOrderStore{}, creator, hub)

	body := map[string]any{
		"order_type":     "PICKUP",
		"payment_method": "CASH",
		"customer_name":  "Maria Souza",
		"customer_phone": "11988887777",
		"items": []map[string]any{
			{"combo_id": comboID, "quantity": 2, "flavors": []string{"Calabresa"}},
		},
	}
	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(got.Items) != 1 || got.Items[0].ComboID != comboID || got.Items[0].Quantity != 2 {
		t.Fatalf("items not forwarded: %+v", got.Items)
	}
	if len(hub.events) != 1 || hub.events[0] != "order_created" {
		t.Errorf("broadcast events = %v, want [order_created]", hub.events)
	}
}

func TestCreateOrderAcceptsLegacyMapCart(t *testing.T) {
	comboID := uuid.NewString()
	var got service.CreateOrderRequest
	creator := &mockOrderCreator{
		createOrderFn: func(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			got = req
			return &service.CreateOrderResult{Order: testDBOrder(t, enum.OrderStatusPending)}, nil
		},
	}
	h := NewOrderHandler(&mockOrderStore{}, creator, nil)

	body := map[string]any{
		"order_type":     "PICKUP",
		"payment_method": "PIX",
		"customer_name":  "João Lima",
		"customer_phone": "11977776666",
		"items":          map[string]int{comboID: 3},
	}
	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(got.Items) != 1 || got.Items[0].ComboID != comboID || got.Items[0].Quantity != 3 {
		t.Fatalf("legacy cart not decoded: %+v", got.Items)
	}
}

func TestCreateOrderValidationErrorIs400(t *testing.T) {
	creator := &mockOrderCreator{
		createOrderFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrAddressRequired
		},
	}
	h := NewOrderHandler(&mockOrderStore{}, creator, nil)

	body := map[string]any{
		"order_type":     "DELIVERY",
		"payment_method": "CASH",
		"customer_name":  "Maria",
		"customer_phone": "11988887777",
		"items":          map[string]int{uuid.NewString(): 1},
	}
	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- Accept / Reject ---

func TestAcceptPendingOrder(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	var cas database.UpdateOrderStatusParams
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			cas = arg
			updated := order
			updated.Status = arg.Status
			return updated, nil
		},
	}
	hub := &mockBroadcaster{}
	h := NewOrderHandler(store, nil, hub)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/accept", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var ack struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ack.Success || ack.Message != "Pedido confirmado" {
		t.Errorf("ack = %+v", ack)
	}
	if cas.Status != enum.OrderStatusConfirmed || cas.PrevStatus != enum.OrderStatusPending {
		t.Errorf("CAS params = %+v", cas)
	}
	if len(hub.events) != 1 || hub.events[0] != "order_updated" {
		t.Errorf("broadcast events = %v", hub.events)
	}
}

func TestAcceptNonPendingOrderIs400(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusConfirmed)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, _ database.UpdateOrderStatusParams) (database.Order, error) {
			t.Fatal("must not update status")
			return database.Order{}, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/accept", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Order already processed")) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAcceptLostRaceIs400(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, _ database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/accept", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Order already processed")) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRejectPreparingOrderCancels(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPreparing)
	var cas database.UpdateOrderStatusParams
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			cas = arg
			updated := order
			updated.Status = arg.Status
			return updated, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/reject", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if cas.Status != enum.OrderStatusCancelled || cas.PrevStatus != enum.OrderStatusPreparing {
		t.Errorf("CAS params = %+v", cas)
	}
}

func TestRejectDeliveredOrderIs400(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusDelivered)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/reject", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAcceptUnknownOrderIs404(t *testing.T) {
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+uuid.NewString()+"/accept", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- Update ---

func TestUpdateStatusValidTransition(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusConfirmed)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			updated := order
			updated.Status = arg.Status
			return updated, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	body := map[string]any{"status": enum.OrderStatusPreparing}
	rec := doRequest(t, orderRouter(h), http.MethodPut, "/orders/"+order.ID.String(), body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != enum.OrderStatusPreparing {
		t.Errorf("status = %q, want PREPARING", resp.Status)
	}
}

func TestUpdateStatusIllegalTransitionIs409(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	body := map[string]any{"status": enum.OrderStatusDelivered}
	rec := doRequest(t, orderRouter(h), http.MethodPut, "/orders/"+order.ID.String(), body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Transição de status inválida")) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestUpdateStatusLostRaceIs409(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusConfirmed)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, _ database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	h := NewOrderHandler(store, nil, nil)

	body := map[string]any{"status": enum.OrderStatusPreparing}
	rec := doRequest(t, orderRouter(h), http.MethodPut, "/orders/"+order.ID.String(), body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestUpdateCourier(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusReady)
	var got database.UpdateOrderCourierParams
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderCourierFn: func(_ context.Context, arg database.UpdateOrderCourierParams) (database.Order, error) {
			got = arg
			updated := order
			updated.Courier = arg.Courier
			return updated, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	body := map[string]any{"courier": "João"}
	rec := doRequest(t, orderRouter(h), http.MethodPut, "/orders/"+order.ID.String(), body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !got.Courier.Valid || got.Courier.String != "João" {
		t.Errorf("courier param = %+v", got.Courier)
	}
}

func TestUpdateEmptyBodyIs400(t *testing.T) {
	h := NewOrderHandler(&mockOrderStore{}, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPut, "/orders/"+uuid.NewString(), map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- Idempotency ---

func TestIdempotentAcceptRunsOnceAndRecords(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	var recorded *database.CreateIdempotencyRecordParams
	calls := 0
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			calls++
			updated := order
			updated.Status = arg.Status
			return updated, nil
		},
		createIdempotencyRecordFn: func(_ context.Context, arg database.CreateIdempotencyRecordParams) error {
			recorded = &arg
			return nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	key := uuid.NewString()
	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/accept", nil,
		map[string]string{"Idempotency-Key": key})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("status updated %d times, want 1", calls)
	}
	if recorded == nil {
		t.Fatal("idempotency record not created")
	}
	if recorded.Key.String() != key || recorded.Action != "accept" || recorded.StatusCode != http.StatusOK {
		t.Errorf("record = %+v", recorded)
	}
}

func TestIdempotentReplayReturnsRecordedOutcome(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	key := uuid.New()
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, _ database.UpdateOrderStatusParams) (database.Order, error) {
			t.Fatal("replay must not re-run the mutation")
			return database.Order{}, nil
		},
		getIdempotencyRecordFn: func(_ context.Context, k uuid.UUID) (database.IdempotencyRecord, error) {
			if k != key {
				t.Errorf("looked up key %s, want %s", k, key)
			}
			return database.IdempotencyRecord{
				Key:        key,
				OrderID:    order.ID,
				Action:     "accept",
				StatusCode: http.StatusOK,
				Response:   []byte(`{"success":true,"message":"Pedido confirmado"}`),
			}, nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/accept", nil,
		map[string]string{"Idempotency-Key": key.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Pedido confirmado")) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestIdempotencyServerErrorNotRecorded(t *testing.T) {
	order := testDBOrder(t, enum.OrderStatusPending)
	store := &mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(_ context.Context, _ database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{}, context.DeadlineExceeded
		},
		createIdempotencyRecordFn: func(_ context.Context, _ database.CreateIdempotencyRecordParams) error {
			t.Fatal("5xx outcomes must not be recorded")
			return nil
		},
	}
	h := NewOrderHandler(store, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+order.ID.String()+"/accept", nil,
		map[string]string{"Idempotency-Key": uuid.NewString()})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestIdempotencyRejectsMalformedKey(t *testing.T) {
	h := NewOrderHandler(&mockOrderStore{
		getOrderFn: func(_ context.Context, _ uuid.UUID) (database.Order, error) {
			t.Fatal("must not reach the store")
			return database.Order{}, nil
		},
	}, nil, nil)

	rec := doRequest(t, orderRouter(h), http.MethodPost, "/orders/"+uuid.NewString()+"/accept", nil,
		map[string]string{"Idempotency-Key": "not-a-uuid"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
