package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrConcurrencyConflict signals a duplicate generated code. With the sequence
// table serializing generation it should be unreachable; it exists as a safety
// net so a locking regression surfaces loudly instead of corrupting data.
var ErrConcurrencyConflict = errors.New("code generation conflict detected")

// NotFoundError reports a missing document, product, or counterparty. Lookups
// by numeric ID set ID; lookups by code or document number set Ref instead.
type NotFoundError struct {
	Entity string
	ID     int
	Ref    string
}

func (e *NotFoundError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidStateTransitionError reports a transition requested from the wrong state.
type InvalidStateTransitionError struct {
	Code   string
	Status DocumentStatus
	Action string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s cannot be %s: status is %s (must be %s)",
		e.Code, e.Action, e.Status, StatusPending)
}

// AlreadyCancelledError reports a cancel on an already-cancelled document.
type AlreadyCancelledError struct {
	Code string
}

func (e *AlreadyCancelledError) Error() string {
	return fmt.Sprintf("%s is already cancelled", e.Code)
}

// InvalidOperationError reports an edit or delete attempted on a non-Pending
// document.
type InvalidOperationError struct {
	Op     string
	Code   string
	Status DocumentStatus
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("cannot %s %s: status is %s (only %s documents may be modified)",
		e.Op, e.Code, e.Status, StatusPending)
}

// InsufficientStockError reports a sale completion that would drive a product's
// stock negative. Carries enough context for a user-facing message.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// CreditLimitExceededError reports a credit draw that would exceed the
// counterparty's limit.
type CreditLimitExceededError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("amount %s exceeds available credit %s",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

// isUniqueViolation reports whether err is a Postgres unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
