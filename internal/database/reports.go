package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type SalesSummaryParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type SalesSummaryRow struct {
	OrderCount     int64
	CancelledCount int64
	GrossRevenue   pgtype.Numeric
	DeliveryFees   pgtype.Numeric
}

// GetSalesSummary totals non-cancelled orders in the given range.
func (q *Queries) GetSalesSummary(ctx context.Context, arg SalesSummaryParams) (SalesSummaryRow, error) {
	var r SalesSummaryRow
	err := q.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'CANCELLED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COALESCE(SUM(total_amount) FILTER (WHERE status <> 'CANCELLED'), 0),
			COALESCE(SUM(delivery_fee) FILTER (WHERE status <> 'CANCELLED'), 0)
		FROM orders
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)`,
		arg.StartDate, arg.EndDate,
	).Scan(&r.OrderCount, &r.CancelledCount, &r.GrossRevenue, &r.DeliveryFees)
	return r, err
}

type PaymentSummaryRow struct {
	PaymentMethod string
	OrderCount    int64
	TotalAmount   pgtype.Numeric
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg SalesSummaryParams) ([]PaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE status <> 'CANCELLED'
		  AND ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		GROUP BY payment_method
		ORDER BY 3 DESC`,
		arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []PaymentSummaryRow{}
	for rows.Next() {
		var r PaymentSummaryRow
		if err := rows.Scan(&r.PaymentMethod, &r.OrderCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type TopCombosParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
}

type TopCombosRow struct {
	ComboID      uuid.UUID
	ComboName    string
	QuantitySold int64
	Revenue      pgtype.Numeric
}

func (q *Queries) GetTopCombos(ctx context.Context, arg TopCombosParams) ([]TopCombosRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.combo_id, oi.combo_name, SUM(oi.quantity), COALESCE(SUM(oi.subtotal), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> 'CANCELLED'
		  AND ($1::timestamptz IS NULL OR o.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR o.created_at < $2)
		GROUP BY oi.combo_id, oi.combo_name
		ORDER BY 3 DESC
		LIMIT $3`,
		arg.StartDate, arg.EndDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []TopCombosRow{}
	for rows.Next() {
		var r TopCombosRow
		if err := rows.Scan(&r.ComboID, &r.ComboName, &r.QuantitySold, &r.Revenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
