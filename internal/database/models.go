package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Username     string
	FullName     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
	IsActive    bool
	CreatedAt   time.Time
}

type Combo struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	MaxFlavors  int32
	SortOrder   int32
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Flavor struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	IsActive    bool
	CreatedAt   time.Time
}

type DeliveryArea struct {
	ID         uuid.UUID
	Name       string
	Fee        pgtype.Numeric
	EtaMinutes int32
	IsActive   bool
	CreatedAt  time.Time
}

type Order struct {
	ID                uuid.UUID
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
	Courier           pgtype.Text
	Notes             pgtype.Text
	Subtotal          pgtype.Numeric
	TotalAmount       pgtype.Numeric
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ComboID      uuid.UUID
	ComboName    string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	Flavors      []string
	Observations pgtype.Text
	Subtotal     pgtype.Numeric
}

type RegisterSession struct {
	ID             uuid.UUID
	OpenedBy       uuid.UUID
	OpeningAmount  pgtype.Numeric
	OpenedAt       time.Time
	ClosedBy       pgtype.UUID
	CountedAmount  pgtype.Numeric
	ExpectedAmount pgtype.Numeric
	Difference     pgtype.Numeric
	ClosedAt       pgtype.Timestamptz
}

type RegisterMovement struct {
	ID           uuid.UUID
	SessionID    uuid.UUID
	MovementType string
	Amount       pgtype.Numeric
	Reason       pgtype.Text
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
}

// IdempotencyRecord stores the first outcome of a keyed order mutation so a
// replayed request returns the same result without re-applying.
type IdempotencyRecord struct {
	Key        uuid.UUID
	OrderID    uuid.UUID
	Action     string
	StatusCode int32
	Response   []byte
	CreatedAt  time.Time
}
