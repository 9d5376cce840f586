// Package service holds the transactional business logic: shift lifecycle,
// stock movements, and order creation/payment. Handlers stay thin and map
// the sentinel errors defined here onto HTTP status codes.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxTxRetries = 3

// ErrTxConflict is returned after maxTxRetries serialization or deadlock
// failures. Handlers map it to 503 so clients retry.
var ErrTxConflict = errors.New("transaction conflict, try again")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// isUniqueViolation checks for a unique constraint violation (SQLSTATE 23505)
// on the named constraint. An empty name matches any constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// isRetryableTxError checks for serialization failure (40001) or deadlock
// detected (40P01).
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// withTxRetry re-runs fn on retryable transaction failures. fn must be a
// complete transaction (begin through commit) so a retry starts clean.
func withTxRetry(fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrTxConflict, lastErr)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
