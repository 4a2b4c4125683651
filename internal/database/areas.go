package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const areaColumns = `id, name, fee, eta_minutes, is_active, created_at`

func scanArea(row pgx.Row) (DeliveryArea, error) {
	var a DeliveryArea
	err := row.Scan(&a.ID, &a.Name, &a.Fee, &a.EtaMinutes, &a.IsActive, &a.CreatedAt)
	return a, err
}

func (q *Queries) ListDeliveryAreas(ctx context.Context) ([]DeliveryArea, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+areaColumns+` FROM delivery_areas WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	areas := []DeliveryArea{}
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (q *Queries) GetDeliveryArea(ctx context.Context, id uuid.UUID) (DeliveryArea, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+areaColumns+` FROM delivery_areas WHERE id = $1 AND is_active = TRUE`, id)
	return scanArea(row)
}

type CreateDeliveryAreaParams struct {
	Name       string
	Fee        pgtype.Numeric
	EtaMinutes int32
}

func (q *Queries) CreateDeliveryArea(ctx context.Context, arg CreateDeliveryAreaParams) (DeliveryArea, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO delivery_areas (name, fee, eta_minutes)
		VALUES ($1, $2, $3)
		RETURNING `+areaColumns,
		arg.Name, arg.Fee, arg.EtaMinutes)
	return scanArea(row)
}

type UpdateDeliveryAreaParams struct {
	ID         uuid.UUID
	Name       string
	Fee        pgtype.Numeric
	EtaMinutes int32
}

func (q *Queries) UpdateDeliveryArea(ctx context.Context, arg UpdateDeliveryAreaParams) (DeliveryArea, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE delivery_areas SET name = $2, fee = $3, eta_minutes = $4
		WHERE id = $1 AND is_active = TRUE
		RETURNING `+areaColumns,
		arg.ID, arg.Name, arg.Fee, arg.EtaMinutes)
	return scanArea(row)
}

func (q *Queries) SoftDeleteDeliveryArea(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE delivery_areas SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE
		RETURNING id`, id).Scan(&deleted)
	return deleted, err
}
