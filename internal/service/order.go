package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID  = errors.New("invalid menu_item_id")
	ErrInvalidWaiterID    = errors.New("invalid waiter_id")
	ErrEmptyTableNumber   = errors.New("table_number is required")
	ErrWaiterNotOnShift   = errors.New("waiter is not on the shift roster")
	ErrItemStopListed     = errors.New("menu item is stop-listed for this shift")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotOpen       = errors.New("order is not open")
	ErrInvalidAmount      = errors.New("amount must be > 0")
	ErrInvalidPaymentType = errors.New("invalid payment_type")
)

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetActiveShiftForUpdate(ctx context.Context) (database.Shift, error)
	GetShiftStaffMember(ctx context.Context, arg database.GetShiftStaffMemberParams) (database.ShiftStaff, error)
	GetActiveMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	IsMenuItemStopListed(ctx context.Context, arg database.IsMenuItemStopListedParams) (bool, error)
	CountStopListedIngredients(ctx context.Context, arg database.CountStopListedIngredientsParams) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	ShiftID     uuid.UUID
	TableNumber string
	WaiterID    string
	Items       []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// CreateOrderResult is the created order with its items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// PaymentRequest is the validated input for recording a payment.
type PaymentRequest struct {
	OrderID     uuid.UUID
	CashierID   uuid.UUID
	Amount      decimal.Decimal
	PaymentType string
}

// PaymentResult carries the payment, the order as of after the payment,
// and whether this payment settled the order.
type PaymentResult struct {
	Payment database.Payment
	Order   database.Order
	Settled bool
}

// OrderService handles order lifecycle business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// processedOrderItem is a validated line with its snapshotted unit price.
type processedOrderItem struct {
	menuItemID uuid.UUID
	quantity   int32
	unitPrice  decimal.Decimal
}

// Create validates the order against the active shift and its stop lists,
// snapshots menu prices, and inserts order plus items in one transaction.
// A menu item is rejected when it, or any ingredient it requires, is on the
// shift's stop lists.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.TableNumber == "" {
		return nil, ErrEmptyTableNumber
	}
	waiterID, err := uuid.Parse(req.WaiterID)
	if err != nil {
		return nil, ErrInvalidWaiterID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the shift row so a concurrent Close cannot end the shift
	// between this check and the commit.
	shift, err := store.GetActiveShiftForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveShift
		}
		return nil, fmt.Errorf("get active shift: %w", err)
	}
	if shift.ID != req.ShiftID {
		return nil, ErrNoActiveShift
	}

	staff, err := store.GetShiftStaffMember(ctx, database.GetShiftStaffMemberParams{
		ShiftID: shift.ID,
		UserID:  waiterID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWaiterNotOnShift
		}
		return nil, fmt.Errorf("get shift staff member: %w", err)
	}
	if staff.Role != enum.UserRoleWaiter {
		return nil, ErrWaiterNotOnShift
	}

	total := decimal.Zero
	var items []processedOrderItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}

		menuItem, err := store.GetActiveMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}

		stopped, err := store.IsMenuItemStopListed(ctx, database.IsMenuItemStopListedParams{
			ShiftID:    shift.ID,
			MenuItemID: menuItemID,
		})
		if err != nil {
			return nil, fmt.Errorf("item[%d]: check menu stop list: %w", i, err)
		}
		if !stopped {
			count, err := store.CountStopListedIngredients(ctx, database.CountStopListedIngredientsParams{
				MenuItemID: menuItemID,
				ShiftID:    shift.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("item[%d]: check ingredient stop list: %w", i, err)
			}
			stopped = count > 0
		}
		if stopped {
			return nil, fmt.Errorf("item[%d] %s: %w", i, menuItem.Name, ErrItemStopListed)
		}

		// Price is snapshotted now; later menu edits leave the order alone.
		unitPrice := numericToDecimal(menuItem.Price)
		total = total.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))

		items = append(items, processedOrderItem{
			menuItemID: menuItemID,
			quantity:   item.Quantity,
			unitPrice:  unitPrice,
		})
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableNumber: req.TableNumber,
		ShiftID:     shift.ID,
		WaiterID:    waiterID,
		TotalPrice:  decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemRows []database.OrderItem
	for _, pi := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: pi.menuItemID,
			Quantity:   pi.quantity,
			UnitPrice:  decimalToNumeric(pi.unitPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemRows = append(itemRows, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: itemRows}, nil
}

// Cancel moves an OPEN order to CANCELLED. The transition is a conditional
// UPDATE; when it matches nothing the order is fetched once more to tell
// "not found" apart from "already terminal".
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := store.GetOrder(ctx, orderID); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return database.Order{}, ErrOrderNotFound
				}
				return database.Order{}, fmt.Errorf("get order: %w", getErr)
			}
			return database.Order{}, ErrOrderNotOpen
		}
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// RecordPayment books a payment against an OPEN order. The transaction
// starts before any read and the order row is locked, so two cashiers
// paying the same order serialize and the PAID flip happens exactly once.
// Overpayment is accepted as-is; change is the cashier's problem.
func (s *OrderService) RecordPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !isValidPaymentType(req.PaymentType) {
		return nil, ErrInvalidPaymentType
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:     order.ID,
		Amount:      decimalToNumeric(req.Amount),
		PaymentType: req.PaymentType,
		CashierID:   req.CashierID,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	sum, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}

	settled := false
	if numericToDecimal(sum).GreaterThanOrEqual(numericToDecimal(order.TotalPrice)) {
		order, err = store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
			ID:        order.ID,
			CashierID: req.CashierID,
		})
		if err != nil {
			// The row is locked and was OPEN above, so zero rows here
			// would mean the lock did not hold.
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
		settled = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PaymentResult{Payment: payment, Order: order, Settled: settled}, nil
}

func isValidPaymentType(s string) bool {
	switch s {
	case enum.PaymentTypeCash, enum.PaymentTypeCard,
		enum.PaymentTypeQR, enum.PaymentTypeOther:
		return true
	}
	return false
}
