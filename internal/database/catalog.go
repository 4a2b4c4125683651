package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Categories ---

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, description, sort_order, is_active, created_at
		FROM categories WHERE is_active = TRUE
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cats := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

type CreateCategoryParams struct {
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO categories (name, description, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, sort_order, is_active, created_at`,
		arg.Name, arg.Description, arg.SortOrder)
	return scanCategory(row)
}

type UpdateCategoryParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE categories SET name = $2, description = $3, sort_order = $4
		WHERE id = $1 AND is_active = TRUE
		RETURNING id, name, description, sort_order, is_active, created_at`,
		arg.ID, arg.Name, arg.Description, arg.SortOrder)
	return scanCategory(row)
}

func (q *Queries) SoftDeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE categories SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE
		RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// --- Combos ---

const comboColumns = `id, category_id, name, description, price, image_url, max_flavors,
	sort_order, is_active, created_at, updated_at`

func scanCombo(row pgx.Row) (Combo, error) {
	var c Combo
	err := row.Scan(&c.ID, &c.CategoryID, &c.Name, &c.Description, &c.Price, &c.ImageURL,
		&c.MaxFlavors, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) ListCombos(ctx context.Context) ([]Combo, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+comboColumns+` FROM combos WHERE is_active = TRUE
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	combos := []Combo{}
	for rows.Next() {
		c, err := scanCombo(rows)
		if err != nil {
			return nil, err
		}
		combos = append(combos, c)
	}
	return combos, rows.Err()
}

func (q *Queries) GetCombo(ctx context.Context, id uuid.UUID) (Combo, error) {
	row := q.db.QueryRow(ctx, `SELECT `+comboColumns+` FROM combos WHERE id = $1`, id)
	return scanCombo(row)
}

// GetComboForOrder is the narrow read used during checkout pricing.
// Only active combos are purchasable.
type GetComboForOrderRow struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	MaxFlavors int32
}

func (q *Queries) GetComboForOrder(ctx context.Context, id uuid.UUID) (GetComboForOrderRow, error) {
	var r GetComboForOrderRow
	err := q.db.QueryRow(ctx, `
		SELECT id, name, price, max_flavors FROM combos
		WHERE id = $1 AND is_active = TRUE`, id).
		Scan(&r.ID, &r.Name, &r.Price, &r.MaxFlavors)
	return r, err
}

type CreateComboParams struct {
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	MaxFlavors  int32
	SortOrder   int32
}

func (q *Queries) CreateCombo(ctx context.Context, arg CreateComboParams) (Combo, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO combos (category_id, name, description, price, image_url, max_flavors, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+comboColumns,
		arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.ImageURL, arg.MaxFlavors, arg.SortOrder)
	return scanCombo(row)
}

type UpdateComboParams struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	MaxFlavors  int32
	SortOrder   int32
}

func (q *Queries) UpdateCombo(ctx context.Context, arg UpdateComboParams) (Combo, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE combos SET category_id = $2, name = $3, description = $4, price = $5,
			image_url = $6, max_flavors = $7, sort_order = $8, updated_at = now()
		WHERE id = $1 AND is_active = TRUE
		RETURNING `+comboColumns,
		arg.ID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.ImageURL,
		arg.MaxFlavors, arg.SortOrder)
	return scanCombo(row)
}

func (q *Queries) SoftDeleteCombo(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE combos SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active = TRUE
		RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// --- Flavors ---

func scanFlavor(row pgx.Row) (Flavor, error) {
	var f Flavor
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.IsActive, &f.CreatedAt)
	return f, err
}

func (q *Queries) ListFlavors(ctx context.Context) ([]Flavor, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM flavors WHERE is_active = TRUE
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	flavors := []Flavor{}
	for rows.Next() {
		f, err := scanFlavor(rows)
		if err != nil {
			return nil, err
		}
		flavors = append(flavors, f)
	}
	return flavors, rows.Err()
}

func (q *Queries) GetFlavorByName(ctx context.Context, name string) (Flavor, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM flavors WHERE name = $1 AND is_active = TRUE`, name)
	return scanFlavor(row)
}

type CreateFlavorParams struct {
	Name        string
	Description pgtype.Text
}

func (q *Queries) CreateFlavor(ctx context.Context, arg CreateFlavorParams) (Flavor, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO flavors (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, is_active, created_at`,
		arg.Name, arg.Description)
	return scanFlavor(row)
}

type UpdateFlavorParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
}

func (q *Queries) UpdateFlavor(ctx context.Context, arg UpdateFlavorParams) (Flavor, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE flavors SET name = $2, description = $3
		WHERE id = $1 AND is_active = TRUE
		RETURNING id, name, description, is_active, created_at`,
		arg.ID, arg.Name, arg.Description)
	return scanFlavor(row)
}

func (q *Queries) SoftDeleteFlavor(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE flavors SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE
		RETURNING id`, id).Scan(&deleted)
	return deleted, err
}
