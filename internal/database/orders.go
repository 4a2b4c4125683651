package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_seq, order_number, external_reference, status, order_type,
	payment_method, customer_name, customer_phone, delivery_address, delivery_area_id,
	delivery_fee, courier, notes, subtotal, total_amount, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderSeq, &o.OrderNumber, &o.ExternalReference, &o.Status, &o.OrderType,
		&o.PaymentMethod, &o.CustomerName, &o.CustomerPhone, &o.DeliveryAddress, &o.DeliveryAreaID,
		&o.DeliveryFee, &o.Courier, &o.Notes, &o.Subtotal, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetNextOrderSeq returns MAX(order_seq)+1. Concurrent callers can race on the
// same value; CreateOrder's unique constraint catches that and the service retries.
func (q *Queries) GetNextOrderSeq(ctx context.Context) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `SELECT COALESCE(MAX(order_seq), 0) + 1 FROM orders`).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	OrderSeq          int32
	OrderNumber       string
	ExternalReference pgtype.Text
	Status            string
	OrderType         string
	PaymentMethod     string
	CustomerName      string
	CustomerPhone     string
	DeliveryAddress   pgtype.Text
	DeliveryAreaID    pgtype.UUID
	DeliveryFee       pgtype.Numeric
	Notes             pgtype.Text
	Subtotal          pgtype.Numeric
	TotalAmount       pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (
			order_seq, order_number, external_reference, status, order_type, payment_method,
			customer_name, customer_phone, delivery_address, delivery_area_id, delivery_fee,
			notes, subtotal, total_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+orderColumns,
		arg.OrderSeq, arg.OrderNumber, arg.ExternalReference, arg.Status, arg.OrderType,
		arg.PaymentMethod, arg.CustomerName, arg.CustomerPhone, arg.DeliveryAddress,
		arg.DeliveryAreaID, arg.DeliveryFee, arg.Notes, arg.Subtotal, arg.TotalAmount,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID      uuid.UUID
	ComboID      uuid.UUID
	ComboName    string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	Flavors      []string
	Observations pgtype.Text
	Subtotal     pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, combo_id, combo_name, quantity, unit_price, flavors, observations, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, order_id, combo_id, combo_name, quantity, unit_price, flavors, observations, subtotal`,
		arg.OrderID, arg.ComboID, arg.ComboName, arg.Quantity, arg.UnitPrice,
		arg.Flavors, arg.Observations, arg.Subtotal,
	).Scan(&it.ID, &it.OrderID, &it.ComboID, &it.ComboName, &it.Quantity, &it.UnitPrice,
		&it.Flavors, &it.Observations, &it.Subtotal)
	return it, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (q *Queries) GetOrderByExternalReference(ctx context.Context, ref string) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_reference = $1`, ref)
	return scanOrder(row)
}

type ListOrdersParams struct {
	Status     pgtype.Text
	ActiveOnly bool
	Origin     pgtype.Text
	StartDate  pgtype.Timestamptz
	EndDate    pgtype.Timestamptz
	Limit      int32
	Offset     int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND (NOT $2::boolean OR status NOT IN ('DELIVERED', 'CANCELLED'))
		  AND ($3::text IS NULL
		       OR ($3 = 'MARKETPLACE' AND external_reference IS NOT NULL)
		       OR ($3 = 'DIRECT' AND external_reference IS NULL))
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`,
		arg.Status, arg.ActiveOnly, arg.Origin, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListClosedOrders returns DELIVERED and CANCELLED orders, newest first.
func (q *Queries) ListClosedOrders(ctx context.Context, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status IN ('DELIVERED', 'CANCELLED')
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (q *Queries) ListMarketplaceOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE external_reference IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, combo_id, combo_name, quantity, unit_price, flavors, observations, subtotal
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ComboID, &it.ComboName, &it.Quantity,
			&it.UnitPrice, &it.Flavors, &it.Observations, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus performs a compare-and-set on the status column.
// Returns pgx.ErrNoRows when the order's status changed between the caller's
// read and this write.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PrevStatus,
	)
	return scanOrder(row)
}

type UpdateOrderCourierParams struct {
	ID      uuid.UUID
	Courier pgtype.Text
}

func (q *Queries) UpdateOrderCourier(ctx context.Context, arg UpdateOrderCourierParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET courier = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Courier,
	)
	return scanOrder(row)
}
