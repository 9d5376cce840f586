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

// Errors returned by the stock service.
var (
	ErrInvalidStockQuantity  = errors.New("quantity must be > 0")
	ErrInvalidPrice          = errors.New("price_per_unit must be > 0")
	ErrSupplierNotFound      = errors.New("supplier not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidWriteOffReason = errors.New("invalid write-off reason")
)

// StockStore defines the DB methods needed by the stock service.
// Satisfied by *database.Queries (and its WithTx variant).
type StockStore interface {
	GetSupplier(ctx context.Context, id uuid.UUID) (database.Supplier, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error)
	DeductIngredientStock(ctx context.Context, arg database.DeductIngredientStockParams) (database.Ingredient, error)
	CreateDelivery(ctx context.Context, arg database.CreateDeliveryParams) (database.Delivery, error)
	CreateWriteOff(ctx context.Context, arg database.CreateWriteOffParams) (database.WriteOff, error)
	GetActiveShiftForUpdate(ctx context.Context) (database.Shift, error)
}

// NewStockStore creates a StockStore from a DBTX (pool or tx).
type NewStockStore func(db database.DBTX) StockStore

// DeliveryRequest is the validated input for recording a delivery.
type DeliveryRequest struct {
	IngredientID uuid.UUID
	SupplierID   uuid.UUID
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	CreatedBy    uuid.UUID
}

// DeliveryResult is the delivery row plus the ingredient after the
// stock increment.
type DeliveryResult struct {
	Delivery   database.Delivery
	Ingredient database.Ingredient
}

// WriteOffRequest is the validated input for recording a write-off.
type WriteOffRequest struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	Reason       string
	Comment      string
	ShiftID      uuid.UUID
	CreatedBy    uuid.UUID
}

// WriteOffResult is the write-off row plus the ingredient after the
// stock decrement.
type WriteOffResult struct {
	WriteOff   database.WriteOff
	Ingredient database.Ingredient
}

// StockService handles the stock ledger: deliveries in, write-offs out.
// Every movement is a ledger row plus a stock mutation in one transaction.
type StockService struct {
	pool     TxBeginner
	newStore NewStockStore
}

// NewStockService creates a new StockService.
func NewStockService(pool TxBeginner, newStore NewStockStore) *StockService {
	return &StockService{pool: pool, newStore: newStore}
}

// RecordDelivery books incoming stock: one delivery row, and the
// ingredient's in_stock incremented and current_price overwritten in a
// single UPDATE, so concurrent deliveries serialize on the ingredient row.
func (s *StockService) RecordDelivery(ctx context.Context, req DeliveryRequest) (*DeliveryResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidStockQuantity
	}
	if !req.PricePerUnit.IsPositive() {
		return nil, ErrInvalidPrice
	}

	var result *DeliveryResult
	err := withTxRetry(func() error {
		var err error
		result, err = s.recordDeliveryTx(ctx, req)
		return err
	})
	return result, err
}

func (s *StockService) recordDeliveryTx(ctx context.Context, req DeliveryRequest) (*DeliveryResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetSupplier(ctx, req.SupplierID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}

	ingredient, err := store.AddIngredientStock(ctx, database.AddIngredientStockParams{
		ID:           req.IngredientID,
		Quantity:     decimalToNumeric(req.Quantity),
		PricePerUnit: decimalToNumeric(req.PricePerUnit),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("add ingredient stock: %w", err)
	}

	delivery, err := store.CreateDelivery(ctx, database.CreateDeliveryParams{
		IngredientID: req.IngredientID,
		SupplierID:   req.SupplierID,
		Quantity:     decimalToNumeric(req.Quantity),
		PricePerUnit: decimalToNumeric(req.PricePerUnit),
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create delivery: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &DeliveryResult{Delivery: delivery, Ingredient: ingredient}, nil
}

// RecordWriteOff books outgoing stock against the active shift. The
// decrement only fires when enough stock is on hand (the UPDATE carries an
// in_stock >= quantity predicate), so stock is never observed negative.
func (s *StockService) RecordWriteOff(ctx context.Context, req WriteOffRequest) (*WriteOffResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidStockQuantity
	}
	if !isValidWriteOffReason(req.Reason) {
		return nil, ErrInvalidWriteOffReason
	}

	var result *WriteOffResult
	err := withTxRetry(func() error {
		var err error
		result, err = s.recordWriteOffTx(ctx, req)
		return err
	})
	return result, err
}

func (s *StockService) recordWriteOffTx(ctx context.Context, req WriteOffRequest) (*WriteOffResult, error) {
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

	ingredient, err := store.DeductIngredientStock(ctx, database.DeductIngredientStockParams{
		ID:       req.IngredientID,
		Quantity: decimalToNumeric(req.Quantity),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows from the conditional UPDATE: either the ingredient
			// does not exist or it does not have enough stock.
			if _, getErr := store.GetIngredient(ctx, req.IngredientID); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return nil, ErrIngredientNotFound
				}
				return nil, fmt.Errorf("get ingredient: %w", getErr)
			}
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("deduct ingredient stock: %w", err)
	}

	comment := pgtype.Text{}
	if req.Comment != "" {
		comment = pgtype.Text{String: req.Comment, Valid: true}
	}

	writeOff, err := store.CreateWriteOff(ctx, database.CreateWriteOffParams{
		IngredientID: req.IngredientID,
		Quantity:     decimalToNumeric(req.Quantity),
		Reason:       req.Reason,
		Comment:      comment,
		ShiftID:      shift.ID,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create write-off: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &WriteOffResult{WriteOff: writeOff, Ingredient: ingredient}, nil
}

func isValidWriteOffReason(s string) bool {
	switch s {
	case enum.WriteOffReasonSpoilage, enum.WriteOffReasonUsage,
		enum.WriteOffReasonInventory, enum.WriteOffReasonOther:
		return true
	}
	return false
}
