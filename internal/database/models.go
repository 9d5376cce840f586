package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Supplier struct {
	ID        uuid.UUID
	Name      string
	Phone     pgtype.Text
	CreatedAt time.Time
}

type Ingredient struct {
	ID             uuid.UUID
	Name           string
	Unit           string
	CurrentPrice   pgtype.Numeric
	InStock        pgtype.Numeric
	LastDeliveryAt pgtype.Timestamptz
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsActive    bool
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MenuItemIngredient struct {
	ID           uuid.UUID
	MenuItemID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

type Shift struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   pgtype.Timestamptz
	IsActive  bool
	ManagerID uuid.UUID
	CreatedAt time.Time
}

type ShiftStaff struct {
	ID      uuid.UUID
	ShiftID uuid.UUID
	UserID  uuid.UUID
	Role    string
}

type Delivery struct {
	ID           uuid.UUID
	IngredientID uuid.UUID
	SupplierID   uuid.UUID
	Quantity     pgtype.Numeric
	PricePerUnit pgtype.Numeric
	DeliveredAt  time.Time
	CreatedBy    uuid.UUID
}

type WriteOff struct {
	ID           uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	Reason       string
	Comment      pgtype.Text
	ShiftID      uuid.UUID
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
}

type Order struct {
	ID          uuid.UUID
	TableNumber string
	Status      string
	ShiftID     uuid.UUID
	WaiterID    uuid.UUID
	CashierID   pgtype.UUID
	TotalPrice  pgtype.Numeric
	CreatedAt   time.Time
	PaidAt      pgtype.Timestamptz
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
}

type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Amount      pgtype.Numeric
	PaymentType string
	CashierID   uuid.UUID
	PaidAt      time.Time
}

type MenuStopListEntry struct {
	ID         uuid.UUID
	ShiftID    uuid.UUID
	MenuItemID uuid.UUID
	CreatedAt  time.Time
}

type IngredientStopListEntry struct {
	ID           uuid.UUID
	ShiftID      uuid.UUID
	IngredientID uuid.UUID
	CreatedAt    time.Time
}

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
