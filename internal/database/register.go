package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, opened_by, opening_amount, opened_at, closed_by,
	counted_amount, expected_amount, difference, closed_at`

func scanSession(row pgx.Row) (RegisterSession, error) {
	var s RegisterSession
	err := row.Scan(&s.ID, &s.OpenedBy, &s.OpeningAmount, &s.OpenedAt, &s.ClosedBy,
		&s.CountedAmount, &s.ExpectedAmount, &s.Difference, &s.ClosedAt)
	return s, err
}

// GetOpenRegisterSession returns the single open session, or pgx.ErrNoRows.
func (q *Queries) GetOpenRegisterSession(ctx context.Context) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM register_sessions WHERE closed_at IS NULL`)
	return scanSession(row)
}

type OpenRegisterSessionParams struct {
	OpenedBy      uuid.UUID
	OpeningAmount pgtype.Numeric
}

func (q *Queries) OpenRegisterSession(ctx context.Context, arg OpenRegisterSessionParams) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO register_sessions (opened_by, opening_amount)
		VALUES ($1, $2)
		RETURNING `+sessionColumns,
		arg.OpenedBy, arg.OpeningAmount)
	return scanSession(row)
}

type CloseRegisterSessionParams struct {
	ID             uuid.UUID
	ClosedBy       pgtype.UUID
	CountedAmount  pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	Difference     pgtype.Numeric
}

func (q *Queries) CloseRegisterSession(ctx context.Context, arg CloseRegisterSessionParams) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE register_sessions
		SET closed_by = $2, counted_amount = $3, expected_amount = $4, difference = $5, closed_at = now()
		WHERE id = $1 AND closed_at IS NULL
		RETURNING `+sessionColumns,
		arg.ID, arg.ClosedBy, arg.CountedAmount, arg.ExpectedAmount, arg.Difference)
	return scanSession(row)
}

// SumCashOrdersSince totals delivered CASH orders created after the session
// opened. Cash only reaches the drawer on handover, so open orders are not
// counted toward the expected amount.
func (q *Queries) SumCashOrdersSince(ctx context.Context, since time.Time) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM orders
		WHERE payment_method = 'CASH'
		  AND status = 'DELIVERED'
		  AND created_at >= $1`, since).Scan(&total)
	return total, err
}

type CreateRegisterMovementParams struct {
	SessionID    uuid.UUID
	MovementType string
	Amount       pgtype.Numeric
	Reason       pgtype.Text
	CreatedBy    uuid.UUID
}

func (q *Queries) CreateRegisterMovement(ctx context.Context, arg CreateRegisterMovementParams) (RegisterMovement, error) {
	var m RegisterMovement
	err := q.db.QueryRow(ctx, `
		INSERT INTO register_movements (session_id, movement_type, amount, reason, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_id, movement_type, amount, reason, created_by, created_at`,
		arg.SessionID, arg.MovementType, arg.Amount, arg.Reason, arg.CreatedBy,
	).Scan(&m.ID, &m.SessionID, &m.MovementType, &m.Amount, &m.Reason, &m.CreatedBy, &m.CreatedAt)
	return m, err
}

func (q *Queries) ListRegisterMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]RegisterMovement, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, session_id, movement_type, amount, reason, created_by, created_at
		FROM register_movements WHERE session_id = $1
		ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []RegisterMovement{}
	for rows.Next() {
		var m RegisterMovement
		if err := rows.Scan(&m.ID, &m.SessionID, &m.MovementType, &m.Amount, &m.Reason,
			&m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// SumMovementsBySession returns supplies minus withdrawals for a session.
func (q *Queries) SumMovementsBySession(ctx context.Context, sessionID uuid.UUID) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN movement_type = 'SUPPLY' THEN amount ELSE -amount END), 0)
		FROM register_movements WHERE session_id = $1`, sessionID).Scan(&total)
	return total, err
}
