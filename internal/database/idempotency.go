package database

import (
	"context"

	"github.com/google/uuid"
)

// GetIdempotencyRecord returns the recorded outcome for a key, or pgx.ErrNoRows.
func (q *Queries) GetIdempotencyRecord(ctx context.Context, key uuid.UUID) (IdempotencyRecord, error) {
	var r IdempotencyRecord
	err := q.db.QueryRow(ctx, `
		SELECT key, order_id, action, status_code, response, created_at
		FROM idempotency_keys WHERE key = $1`, key).
		Scan(&r.Key, &r.OrderID, &r.Action, &r.StatusCode, &r.Response, &r.CreatedAt)
	return r, err
}

type CreateIdempotencyRecordParams struct {
	Key        uuid.UUID
	OrderID    uuid.UUID
	Action     string
	StatusCode int32
	Response   []byte
}

// CreateIdempotencyRecord stores a mutation outcome. ON CONFLICT DO NOTHING:
// a concurrent duplicate keeps the first recorded outcome.
func (q *Queries) CreateIdempotencyRecord(ctx context.Context, arg CreateIdempotencyRecordParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO idempotency_keys (key, order_id, action, status_code, response)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING`,
		arg.Key, arg.OrderID, arg.Action, arg.StatusCode, arg.Response)
	return err
}
